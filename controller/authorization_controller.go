// controller/authorization_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authz/service"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

// AuthorizeRequest is the body of POST /authorize. An empty actor means the
// caller itself.
type AuthorizeRequest struct {
	Actor        string   `json:"actor"`
	Groups       []string `json:"groups"`
	Privilege    string   `json:"privilege" binding:"required"`
	ResourceType string   `json:"resource_type"`
	Resource     string   `json:"resource"`
	Owners       []string `json:"owners"`
}

type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

type AuthorizationController struct {
	authzService service.IAuthorizationService
}

func NewAuthorizationController(authzService service.IAuthorizationService) *AuthorizationController {
	return &AuthorizationController{authzService: authzService}
}

func (ac *AuthorizationController) RegisterRoutes(r *gin.RouterGroup, adminGuard gin.HandlerFunc) {
	r.POST("/authorize", ac.Authorize)

	authz := r.Group("/authorization")
	{
		authz.GET("/mode", ac.GetMode)
		authz.GET("/index", ac.GetIndex)
		authz.PUT("/mode", adminGuard, ac.SetMode)
		authz.POST("/invalidate", adminGuard, ac.InvalidateCache)
	}
}

func (ac *AuthorizationController) Authorize(c *gin.Context) {
	var body AuthorizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid authorization request", err)
		return
	}

	actor := pdp_model.Actor{URN: body.Actor, Groups: body.Groups}
	if actor.URN == "" {
		caller, ok := util.GetActorFromContext(c)
		if !ok {
			util.RespondWithError(c, http.StatusBadRequest, "actor is required", authz_errors.ErrInvalidAuthzRequest)
			return
		}
		actor = caller
	}

	var resource *pdp_model.ResourceSpec
	if body.Resource != "" || body.ResourceType != "" {
		resource = &pdp_model.ResourceSpec{Type: body.ResourceType, Resource: body.Resource, Owners: body.Owners}
	}

	decision, err := ac.authzService.Authorize(c, pdp_model.NewAuthorizationRequest(actor, body.Privilege, resource))
	if err != nil {
		if errors.Is(err, authz_errors.ErrInvalidAuthzRequest) {
			util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Authorization failed", err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

func (ac *AuthorizationController) GetMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": ac.authzService.Mode()})
}

func (ac *AuthorizationController) SetMode(c *gin.Context) {
	var body ModeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid mode request", err)
		return
	}
	actor, _ := util.GetActorFromContext(c)

	mode, err := ac.authzService.SetMode(c, body.Mode, actor.URN)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrUnsafeModeDisallowed):
			util.RespondWithError(c, http.StatusForbidden, err.Error(), err)
		case errors.Is(err, authz_errors.ErrInvalidMode):
			util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to set mode", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"mode": mode})
}

// InvalidateCache queues a rebuild and answers 202 without waiting for it.
func (ac *AuthorizationController) InvalidateCache(c *gin.Context) {
	actor, _ := util.GetActorFromContext(c)
	if err := ac.authzService.InvalidateCache(c, actor.URN); err != nil {
		// the local rebuild is queued even if other instances were not told
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "broadcast": false})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "broadcast": true})
}

func (ac *AuthorizationController) GetIndex(c *gin.Context) {
	c.JSON(http.StatusOK, ac.authzService.IndexSummary())
}
