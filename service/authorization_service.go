// service/authorization_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/authz/audit"
	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/refresh"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

// IAuthorizationService is the HTTP-facing side of the authorizer.
type IAuthorizationService interface {
	Authorize(ctx context.Context, request pdp_model.AuthorizationRequest) (*AuthorizationDecision, error)
	Mode() pdp_model.EnforcementMode
	SetMode(ctx context.Context, raw string, actorURN string) (pdp_model.EnforcementMode, error)
	InvalidateCache(ctx context.Context, actorURN string) error
	IndexSummary() IndexSummary
}

// Authorizer is implemented by authorizer.AuthorizationManager.
type Authorizer interface {
	Authorize(request pdp_model.AuthorizationRequest) pdp_model.AuthorizationResult
	Permits(result pdp_model.AuthorizationResult) bool
	Mode() pdp_model.EnforcementMode
	SetMode(mode pdp_model.EnforcementMode)
	InvalidateCache()
	Snapshot() *cache.PolicyIndex
	LastRefresh() (refresh.Outcome, bool)
}

// ActorResolver fills in group membership and resource ownership that the
// caller did not supply.
type ActorResolver interface {
	ResolveGroups(ctx context.Context, actorURN string) ([]string, error)
	ResolveOwners(ctx context.Context, resourceURN string) ([]string, error)
}

// AuthorizationDecision is the answer to one authorization request. Enforced
// is false while the authorizer runs PERMISSIVE; Permitted tells the caller
// whether to proceed.
type AuthorizationDecision struct {
	Decision        pdp_model.Decision        `json:"decision"`
	MatchedPolicyID string                    `json:"matched_policy_id,omitempty"`
	Mode            pdp_model.EnforcementMode `json:"mode"`
	Enforced        bool                      `json:"enforced"`
	Permitted       bool                      `json:"permitted"`
}

// IndexSummary describes the published policy index.
type IndexSummary struct {
	Mode        pdp_model.EnforcementMode `json:"mode"`
	Policies    int                       `json:"policies"`
	Privileges  map[string]int            `json:"privileges"`
	LastRefresh *RefreshSummary           `json:"last_refresh,omitempty"`
}

type RefreshSummary struct {
	Status     refresh.Status `json:"status"`
	Policies   int            `json:"policies"`
	Pages      int            `json:"pages"`
	DurationMS int64          `json:"duration_ms"`
	FinishedAt time.Time      `json:"finished_at"`
	Error      string         `json:"error,omitempty"`
}

type AuthorizationService struct {
	authorizer      Authorizer
	broadcaster     util.InvalidationBroadcaster
	auditService    audit.Service
	resolver        ActorResolver
	allowPermissive bool
}

var _ IAuthorizationService = &AuthorizationService{}

func NewAuthorizationService(authorizer Authorizer, broadcaster util.InvalidationBroadcaster, auditService audit.Service, allowPermissive bool) *AuthorizationService {
	return &AuthorizationService{
		authorizer:      authorizer,
		broadcaster:     broadcaster,
		auditService:    auditService,
		allowPermissive: allowPermissive,
	}
}

// WithResolver enables group and owner resolution for requests that omit
// them.
func (s *AuthorizationService) WithResolver(resolver ActorResolver) *AuthorizationService {
	s.resolver = resolver
	return s
}

func (s *AuthorizationService) Authorize(ctx context.Context, request pdp_model.AuthorizationRequest) (*AuthorizationDecision, error) {
	request.Privilege = strings.TrimSpace(request.Privilege)
	if request.Actor.URN == "" || request.Privilege == "" {
		return nil, fmt.Errorf("%w: actor and privilege are required", authz_errors.ErrInvalidAuthzRequest)
	}
	if request.Resource != nil && request.Resource.Resource == "" && request.Resource.Type == "" {
		request.Resource = nil
	}
	if s.resolver != nil {
		s.resolve(ctx, &request)
	}

	result := s.authorizer.Authorize(request)
	mode := s.authorizer.Mode()
	return &AuthorizationDecision{
		Decision:        result.Decision,
		MatchedPolicyID: result.MatchedPolicyID(),
		Mode:            mode,
		Enforced:        mode == pdp_model.ModeEnforcing,
		Permitted:       s.authorizer.Permits(result),
	}, nil
}

// resolve completes the request in place. A lookup failure leaves the field
// empty, which can only narrow what the request is granted.
func (s *AuthorizationService) resolve(ctx context.Context, request *pdp_model.AuthorizationRequest) {
	if request.Actor.Groups == nil {
		groups, err := s.resolver.ResolveGroups(ctx, request.Actor.URN)
		if err != nil {
			logger.Warn("Could not resolve actor groups", zap.Error(err), zap.String("actor", request.Actor.URN))
		} else {
			request.Actor.Groups = groups
		}
	}
	if request.Resource != nil && request.Resource.Owners == nil && request.Resource.Resource != "" {
		owners, err := s.resolver.ResolveOwners(ctx, request.Resource.Resource)
		if err != nil {
			logger.Warn("Could not resolve resource owners", zap.Error(err), zap.String("resource", request.Resource.Resource))
			return
		}
		resource := *request.Resource
		resource.Owners = owners
		request.Resource = &resource
	}
}

func (s *AuthorizationService) Mode() pdp_model.EnforcementMode {
	return s.authorizer.Mode()
}

// SetMode parses raw with the configured permissive guard, applies it and
// records the change.
func (s *AuthorizationService) SetMode(ctx context.Context, raw string, actorURN string) (pdp_model.EnforcementMode, error) {
	mode, err := pdp_model.ParseMode(raw, s.allowPermissive)
	if err != nil {
		return "", err
	}
	previous := s.authorizer.Mode()
	s.authorizer.SetMode(mode)

	if previous != mode {
		details, _ := json.Marshal(map[string]string{"from": string(previous), "to": string(mode)})
		s.recordAudit(ctx, audit.ActionSetMode, actorURN, details)
	}
	return mode, nil
}

// InvalidateCache queues a local rebuild and asks the other instances to do
// the same.
func (s *AuthorizationService) InvalidateCache(ctx context.Context, actorURN string) error {
	s.authorizer.InvalidateCache()
	s.recordAudit(ctx, audit.ActionInvalidate, actorURN, nil)

	if s.broadcaster == nil {
		return nil
	}
	if err := s.broadcaster.Broadcast(ctx, "", model.ChangeManual); err != nil {
		logger.Error("Failed to broadcast cache invalidation", zap.Error(err))
		return err
	}
	return nil
}

func (s *AuthorizationService) IndexSummary() IndexSummary {
	index := s.authorizer.Snapshot()
	summary := IndexSummary{
		Mode:       s.authorizer.Mode(),
		Policies:   index.Len(),
		Privileges: make(map[string]int),
	}
	for _, privilege := range index.Privileges() {
		summary.Privileges[privilege] = len(index.Get(privilege))
	}
	if outcome, ok := s.authorizer.LastRefresh(); ok {
		last := &RefreshSummary{
			Status:     outcome.Status,
			Policies:   outcome.Policies,
			Pages:      outcome.Pages,
			DurationMS: outcome.Duration.Milliseconds(),
			FinishedAt: outcome.FinishedAt,
		}
		if outcome.Err != nil {
			last.Error = outcome.Err.Error()
		}
		summary.LastRefresh = last
	}
	return summary
}

func (s *AuthorizationService) recordAudit(ctx context.Context, action, actorURN string, details json.RawMessage) {
	if s.auditService == nil {
		return
	}
	err := s.auditService.Record(ctx, audit.AuditLog{
		ActorURN:      actorURN,
		Action:        action,
		ChangeDetails: details,
	})
	if err != nil {
		logger.Error("Failed to create audit log", zap.Error(err), zap.String("action", action))
	}
}
