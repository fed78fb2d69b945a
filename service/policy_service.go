// service/policy_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dev-mohitbeniwal/echo/authz/audit"
	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

const bulkCreateConcurrency = 10

// IPolicyService defines the interface for policy administration
type IPolicyService interface {
	CreatePolicy(ctx context.Context, policy model.Policy, actorURN string) (*model.Policy, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, actorURN string) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string, actorURN string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error)
	SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error)
	GetPolicyAuditTrail(ctx context.Context, policyID string, limit int) ([]audit.AuditLog, error)
	BulkCreatePolicies(ctx context.Context, policies []model.Policy, actorURN string) ([]string, error)
}

// PolicyRepository is the write side of the policy store.
type PolicyRepository interface {
	CreatePolicy(ctx context.Context, policy model.Policy, actorURN string) (string, error)
	UpdatePolicy(ctx context.Context, policy model.Policy, actorURN string) (*model.Policy, error)
	DeletePolicy(ctx context.Context, policyID string, actorURN string) error
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error)
	SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error)
}

// PolicyCache caches single policies for GetPolicy.
type PolicyCache interface {
	GetPolicy(ctx context.Context, policyID string) (*model.Policy, error)
	SetPolicy(ctx context.Context, policy model.Policy) error
	DeletePolicy(ctx context.Context, policyID string) error
}

// CacheInvalidator queues a rebuild of the in-memory policy index.
type CacheInvalidator interface {
	InvalidateCache()
}

// PolicyService handles business logic for policy operations
type PolicyService struct {
	policyRepo      PolicyRepository
	validationUtil  *util.ValidationUtil
	cacheService    PolicyCache
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	invalidator     CacheInvalidator
	broadcaster     util.InvalidationBroadcaster
	auditService    audit.Service
}

var _ IPolicyService = &PolicyService{}

// NewPolicyService wires the service and subscribes its change handlers to
// the event bus. broadcaster may be nil for a single-instance deployment.
func NewPolicyService(
	policyRepo PolicyRepository,
	validationUtil *util.ValidationUtil,
	cacheService PolicyCache,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	invalidator CacheInvalidator,
	broadcaster util.InvalidationBroadcaster,
	auditService audit.Service,
) *PolicyService {
	service := &PolicyService{
		policyRepo:      policyRepo,
		validationUtil:  validationUtil,
		cacheService:    cacheService,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		invalidator:     invalidator,
		broadcaster:     broadcaster,
		auditService:    auditService,
	}

	eventBus.Subscribe(util.EventPolicyCreated, service.handlePolicyCreated)
	eventBus.Subscribe(util.EventPolicyUpdated, service.handlePolicyUpdated)
	eventBus.Subscribe(util.EventPolicyDeleted, service.handlePolicyDeleted)

	return service
}

func (s *PolicyService) handlePolicyCreated(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy created event received", zap.String("policyID", policy.ID))
	return s.propagateChange(ctx, model.ChangeCreated, policy)
}

func (s *PolicyService) handlePolicyUpdated(ctx context.Context, event util.Event) error {
	policy, ok := event.Payload.(model.Policy)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy updated event received",
		zap.String("policyID", policy.ID),
		zap.Int("version", policy.Version))
	return s.propagateChange(ctx, model.ChangeUpdated, policy)
}

func (s *PolicyService) handlePolicyDeleted(ctx context.Context, event util.Event) error {
	policyID, ok := event.Payload.(string)
	if !ok {
		return fmt.Errorf("invalid event payload type: %T", event.Payload)
	}
	logger.Info("Policy deleted event received", zap.String("policyID", policyID))
	return s.propagateChange(ctx, model.ChangeDeleted, model.Policy{ID: policyID})
}

// propagateChange rebuilds the local index, notifies and tells the other
// instances. Only a failed broadcast is returned as an error.
func (s *PolicyService) propagateChange(ctx context.Context, changeType string, policy model.Policy) error {
	if s.invalidator != nil {
		s.invalidator.InvalidateCache()
	}

	if err := s.notificationSvc.NotifyPolicyChange(ctx, changeType, policy); err != nil {
		logger.Warn("Failed to send policy change notification", zap.Error(err), zap.String("policyID", policy.ID))
	}

	if s.broadcaster == nil {
		return nil
	}
	if err := s.broadcaster.Broadcast(ctx, policy.ID, changeType); err != nil {
		logger.Error("Failed to broadcast policy invalidation", zap.Error(err), zap.String("policyID", policy.ID))
		return err
	}
	return nil
}

// CreatePolicy handles the creation of a new policy
func (s *PolicyService) CreatePolicy(ctx context.Context, policy model.Policy, actorURN string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	policy.CreatedAt = now
	policy.UpdatedAt = now
	policy.Version = 1

	policyID, err := s.policyRepo.CreatePolicy(ctx, policy, actorURN)
	if err != nil {
		logger.Error("Error creating policy", zap.Error(err), zap.String("actor", actorURN))
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}

	policy.ID = policyID

	if err := s.cacheService.SetPolicy(ctx, policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, util.EventPolicyCreated, policy)

	logger.Info("Policy created successfully", zap.String("policyID", policyID), zap.String("actor", actorURN))
	return &policy, nil
}

// UpdatePolicy handles updates to an existing policy. Policies marked as not
// editable are rejected with ErrPolicyNotEditable.
func (s *PolicyService) UpdatePolicy(ctx context.Context, policy model.Policy, actorURN string) (*model.Policy, error) {
	if err := s.validationUtil.ValidatePolicy(policy); err != nil {
		return nil, err
	}

	oldPolicy, err := s.policyRepo.GetPolicy(ctx, policy.ID)
	if err != nil {
		logger.Error("Error retrieving existing policy", zap.Error(err), zap.String("policyID", policy.ID))
		return nil, err
	}
	if !oldPolicy.Editable {
		return nil, authz_errors.ErrPolicyNotEditable
	}

	if !hasPolicyChanged(oldPolicy, &policy) {
		logger.Info("No changes detected in the policy, skipping update", zap.String("policyID", policy.ID))
		return oldPolicy, nil
	}

	policy.CreatedAt = oldPolicy.CreatedAt
	policy.UpdatedAt = time.Now().UTC()
	policy.Version = oldPolicy.Version + 1

	updatedPolicy, err := s.policyRepo.UpdatePolicy(ctx, policy, actorURN)
	if err != nil {
		logger.Error("Error updating policy", zap.Error(err), zap.String("policyID", policy.ID), zap.String("actor", actorURN))
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}

	if err := s.cacheService.SetPolicy(ctx, *updatedPolicy); err != nil {
		logger.Warn("Failed to update policy in cache", zap.Error(err), zap.String("policyID", policy.ID))
	}

	s.eventBus.Publish(ctx, util.EventPolicyUpdated, *updatedPolicy)

	logger.Info("Policy updated successfully", zap.String("policyID", policy.ID), zap.String("actor", actorURN))
	return updatedPolicy, nil
}

// DeletePolicy handles the deletion of a policy
func (s *PolicyService) DeletePolicy(ctx context.Context, policyID string, actorURN string) error {
	existing, err := s.policyRepo.GetPolicy(ctx, policyID)
	if err != nil {
		return err
	}
	if !existing.Editable {
		return authz_errors.ErrPolicyNotEditable
	}

	if err := s.policyRepo.DeletePolicy(ctx, policyID, actorURN); err != nil {
		logger.Error("Error deleting policy", zap.Error(err), zap.String("policyID", policyID), zap.String("actor", actorURN))
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	if err := s.cacheService.DeletePolicy(ctx, policyID); err != nil {
		logger.Warn("Failed to delete policy from cache", zap.Error(err), zap.String("policyID", policyID))
	}

	s.eventBus.Publish(ctx, util.EventPolicyDeleted, policyID)

	logger.Info("Policy deleted successfully", zap.String("policyID", policyID), zap.String("actor", actorURN))
	return nil
}

// GetPolicy retrieves a policy by its ID
func (s *PolicyService) GetPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	cachedPolicy, err := s.cacheService.GetPolicy(ctx, policyID)
	if err == nil && cachedPolicy != nil {
		return cachedPolicy, nil
	}

	policy, err := s.policyRepo.GetPolicy(ctx, policyID)
	if err != nil {
		if errors.Is(err, authz_errors.ErrPolicyNotFound) {
			return nil, authz_errors.ErrPolicyNotFound
		}
		logger.Error("Error retrieving policy", zap.Error(err), zap.String("policyID", policyID))
		return nil, authz_errors.ErrInternalServer
	}

	if err := s.cacheService.SetPolicy(ctx, *policy); err != nil {
		logger.Warn("Failed to cache policy", zap.Error(err), zap.String("policyID", policyID))
	}

	return policy, nil
}

// ListPolicies retrieves one page of policies
func (s *PolicyService) ListPolicies(ctx context.Context, limit int, offset int) ([]*model.Policy, error) {
	if limit <= 0 || offset < 0 {
		return nil, authz_errors.ErrInvalidPagination
	}
	policies, err := s.policyRepo.ListPolicies(ctx, limit, offset)
	if err != nil {
		logger.Error("Error listing policies", zap.Error(err), zap.Int("limit", limit), zap.Int("offset", offset))
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	return policies, nil
}

// BulkCreatePolicies creates multiple policies in parallel. The returned ids
// are in input order.
func (s *PolicyService) BulkCreatePolicies(ctx context.Context, policies []model.Policy, actorURN string) ([]string, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkCreateConcurrency)
	policyIDs := make([]string, len(policies))

	for i, policy := range policies {
		i, policy := i, policy
		g.Go(func() error {
			createdPolicy, err := s.CreatePolicy(ctx, policy, actorURN)
			if err != nil {
				return err
			}
			policyIDs[i] = createdPolicy.ID
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Error in bulk create policies", zap.Error(err), zap.String("actor", actorURN))
		return nil, fmt.Errorf("failed to bulk create policies: %w", err)
	}

	logger.Info("Bulk create policies completed", zap.Int("count", len(policyIDs)), zap.String("actor", actorURN))
	return policyIDs, nil
}

// SearchPolicies searches for policies based on given criteria
func (s *PolicyService) SearchPolicies(ctx context.Context, criteria model.PolicySearchCriteria) ([]*model.Policy, error) {
	if criteria.Limit < 0 {
		return nil, authz_errors.ErrInvalidSearchCriteria
	}
	policies, err := s.policyRepo.SearchPolicies(ctx, criteria)
	if err != nil {
		logger.Error("Error searching policies", zap.Error(err), zap.Any("criteria", criteria))
		return nil, fmt.Errorf("failed to search policies: %w", err)
	}

	return policies, nil
}

// GetPolicyAuditTrail returns the recorded mutations of one policy, newest
// first.
func (s *PolicyService) GetPolicyAuditTrail(ctx context.Context, policyID string, limit int) ([]audit.AuditLog, error) {
	if s.auditService == nil {
		return []audit.AuditLog{}, nil
	}
	logs, err := s.auditService.QueryLogs(ctx, audit.Query{PolicyID: policyID, Limit: limit})
	if err != nil {
		logger.Error("Error querying policy audit trail", zap.Error(err), zap.String("policyID", policyID))
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	return logs, nil
}

// hasPolicyChanged compares the fields a caller may edit.
func hasPolicyChanged(oldPolicy, newPolicy *model.Policy) bool {
	return oldPolicy.DisplayName != newPolicy.DisplayName ||
		oldPolicy.Description != newPolicy.Description ||
		oldPolicy.Type != newPolicy.Type ||
		oldPolicy.State != newPolicy.State ||
		oldPolicy.Condition != newPolicy.Condition ||
		oldPolicy.Editable != newPolicy.Editable ||
		!reflect.DeepEqual(oldPolicy.Privileges, newPolicy.Privileges) ||
		!reflect.DeepEqual(oldPolicy.Actors, newPolicy.Actors) ||
		!reflect.DeepEqual(oldPolicy.Resources, newPolicy.Resources)
}
