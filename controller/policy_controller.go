// controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/service"
	"github.com/dev-mohitbeniwal/echo/authz/util"
	helper_util "github.com/dev-mohitbeniwal/echo/authz/util/helper"
)

const defaultAuditTrailLimit = 50

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the policy routes. Mutating routes run behind
// writeGuard.
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup, writeGuard gin.HandlerFunc) {
	policies := r.Group("/policies")
	{
		policies.GET("", pc.ListPolicies)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("/:id/audit", pc.GetPolicyAuditTrail)
		policies.POST("/search", pc.SearchPolicies)
	}

	writes := policies.Group("", writeGuard)
	{
		writes.POST("", pc.CreatePolicy)
		writes.POST("/bulk", pc.BulkCreatePolicies)
		writes.PUT("/:id", pc.UpdatePolicy)
		writes.DELETE("/:id", pc.DeletePolicy)
	}
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", authz_errors.ErrUnauthorized)
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c, policy, actor.URN)
	if err != nil {
		respondPolicyError(c, "Failed to create policy", err)
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// BulkCreatePolicies endpoint
func (pc *PolicyController) BulkCreatePolicies(c *gin.Context) {
	var policies []model.Policy
	if err := c.ShouldBindJSON(&policies); err != nil || len(policies) == 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", authz_errors.ErrInvalidPolicyData)
		return
	}
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", authz_errors.ErrUnauthorized)
		return
	}

	ids, err := pc.policyService.BulkCreatePolicies(c, policies, actor.URN)
	if err != nil {
		respondPolicyError(c, "Failed to create policies", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}
	policy.ID = c.Param("id")
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", authz_errors.ErrUnauthorized)
		return
	}

	updatedPolicy, err := pc.policyService.UpdatePolicy(c, policy, actor.URN)
	if err != nil {
		respondPolicyError(c, "Failed to update policy", err)
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	actor, ok := util.GetActorFromContext(c)
	if !ok {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", authz_errors.ErrUnauthorized)
		return
	}

	if err := pc.policyService.DeletePolicy(c, c.Param("id"), actor.URN); err != nil {
		respondPolicyError(c, "Failed to delete policy", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policy, err := pc.policyService.GetPolicy(c, c.Param("id"))
	if err != nil {
		respondPolicyError(c, "Failed to retrieve policy", err)
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	policies, err := pc.policyService.ListPolicies(c, limit, offset)
	if err != nil {
		respondPolicyError(c, "Failed to list policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}

// SearchPolicies endpoint
func (pc *PolicyController) SearchPolicies(c *gin.Context) {
	var criteria model.PolicySearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid search criteria", err)
		return
	}

	policies, err := pc.policyService.SearchPolicies(c, criteria)
	if err != nil {
		respondPolicyError(c, "Failed to search policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}

// GetPolicyAuditTrail endpoint
func (pc *PolicyController) GetPolicyAuditTrail(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultAuditTrailLimit)))
	if err != nil || limit <= 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid limit", authz_errors.ErrInvalidPagination)
		return
	}

	logs, err := pc.policyService.GetPolicyAuditTrail(c, c.Param("id"), limit)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit trail", err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

func respondPolicyError(c *gin.Context, message string, err error) {
	switch {
	case errors.Is(err, authz_errors.ErrPolicyNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
	case errors.Is(err, authz_errors.ErrPolicyConflict):
		util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
	case errors.Is(err, authz_errors.ErrPolicyNotEditable):
		util.RespondWithError(c, http.StatusForbidden, "Policy is not editable", err)
	case errors.Is(err, authz_errors.ErrInvalidPolicyData),
		errors.Is(err, authz_errors.ErrInvalidPagination),
		errors.Is(err, authz_errors.ErrInvalidSearchCriteria):
		util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, message, err)
	}
}
