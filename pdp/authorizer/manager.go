package authorizer

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/refresh"
	"github.com/dev-mohitbeniwal/echo/authz/telemetry"
)

// Evaluator decides whether one policy grants a request. Implementations must
// not perform I/O.
type Evaluator interface {
	EvaluatePolicy(policy *model.Policy, actor pdp_model.Actor, privilege string, resource *pdp_model.ResourceSpec) pdp_model.PolicyEvaluationResult
}

type Config struct {
	Mode            pdp_model.EnforcementMode
	RefreshDelay    time.Duration
	RefreshInterval time.Duration
	PageSize        int
	SystemActor     string
}

// AuthorizationManager answers authorization requests from an in-memory
// policy index that a background scheduler keeps fresh. Until the first
// refresh completes every request is denied.
type AuthorizationManager struct {
	index     atomic.Pointer[cache.PolicyIndex]
	mode      atomic.Value
	evaluator Evaluator
	job       *refresh.Job
	scheduler *refresh.Scheduler
	metrics   *telemetry.Metrics
}

func NewAuthorizationManager(store refresh.PolicyStore, evaluator Evaluator, cfg Config) *AuthorizationManager {
	m := &AuthorizationManager{
		evaluator: evaluator,
		metrics:   telemetry.Default(),
	}
	m.index.Store(cache.Empty())

	mode := cfg.Mode
	if !mode.Valid() {
		mode = pdp_model.ModeEnforcing
	}
	m.mode.Store(mode)

	m.job = refresh.NewJob(store, m, refresh.Config{
		PageSize:    cfg.PageSize,
		SystemActor: cfg.SystemActor,
	})
	m.scheduler = refresh.NewScheduler(m.job, cfg.RefreshDelay, cfg.RefreshInterval)
	return m
}

// Start launches the refresh worker.
func (m *AuthorizationManager) Start(ctx context.Context) {
	m.scheduler.Start(ctx)
	logger.Info("Authorization manager started", zap.String("mode", string(m.Mode())))
}

// Stop halts the refresh worker. The last published index stays readable
// and Start may be called again.
func (m *AuthorizationManager) Stop() {
	m.scheduler.Stop()
	logger.Info("Authorization manager stopped")
}

// Authorize returns ALLOW with the first candidate policy that grants the
// request, in fetch order, and DENY otherwise.
func (m *AuthorizationManager) Authorize(request pdp_model.AuthorizationRequest) pdp_model.AuthorizationResult {
	index := m.index.Load()
	result := pdp_model.AuthorizationResult{
		Request:  request,
		Decision: pdp_model.DecisionDeny,
	}

	candidates := index.Get(request.Privilege)
	for _, policy := range candidates {
		evaluation := m.evaluator.EvaluatePolicy(policy, request.Actor, request.Privilege, request.Resource)
		if evaluation.Granted {
			result.Policy = policy
			result.Decision = pdp_model.DecisionAllow
			break
		}
	}

	// Privileges come from the caller; only indexed ones become label values.
	privilegeLabel := telemetry.UnknownPrivilege
	if len(candidates) > 0 {
		privilegeLabel = request.Privilege
	}
	m.metrics.RecordDecision(context.Background(), privilegeLabel, string(result.Decision))
	logger.Debug("Authorization decision",
		zap.String("actor", request.Actor.URN),
		zap.String("privilege", request.Privilege),
		zap.String("decision", string(result.Decision)),
		zap.String("policyID", result.MatchedPolicyID()))
	return result
}

// InvalidateCache queues a refresh outside the regular schedule and returns
// immediately.
func (m *AuthorizationManager) InvalidateCache() {
	m.metrics.RecordInvalidation(context.Background(), "local")
	m.scheduler.Trigger()
}

func (m *AuthorizationManager) Mode() pdp_model.EnforcementMode {
	return m.mode.Load().(pdp_model.EnforcementMode)
}

// SetMode switches the enforcement mode for the whole process. Callers are
// expected to have validated the mode with pdp_model.ParseMode.
func (m *AuthorizationManager) SetMode(mode pdp_model.EnforcementMode) {
	if !mode.Valid() {
		logger.Warn("Ignoring invalid authorization mode", zap.String("mode", string(mode)))
		return
	}
	previous := m.Mode()
	m.mode.Store(mode)
	if previous != mode {
		logger.Warn("Authorization mode changed",
			zap.String("from", string(previous)),
			zap.String("to", string(mode)))
	}
}

// Permits reports whether the caller should let the operation proceed: on
// ALLOW, or on any decision while PERMISSIVE.
func (m *AuthorizationManager) Permits(result pdp_model.AuthorizationResult) bool {
	return result.Allowed() || m.Mode() == pdp_model.ModePermissive
}

// Snapshot returns the currently published index.
func (m *AuthorizationManager) Snapshot() *cache.PolicyIndex {
	return m.index.Load()
}

// LastRefresh returns the outcome of the most recent refresh cycle.
func (m *AuthorizationManager) LastRefresh() (refresh.Outcome, bool) {
	return m.scheduler.LastOutcome()
}

// Publish swaps in a freshly built index. Only the refresh job calls it.
func (m *AuthorizationManager) Publish(index *cache.PolicyIndex) {
	if index == nil {
		index = cache.Empty()
	}
	m.index.Store(index)
}
