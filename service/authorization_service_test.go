package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/authz/audit"
	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/cache"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/refresh"
	mock_audit "github.com/dev-mohitbeniwal/echo/authz/test/mock"
)

type stubAuthorizer struct {
	countingInvalidator
	mode     pdp_model.EnforcementMode
	policy   *model.Policy
	index    *cache.PolicyIndex
	outcome  *refresh.Outcome
	requests []pdp_model.AuthorizationRequest
}

func (a *stubAuthorizer) Authorize(request pdp_model.AuthorizationRequest) pdp_model.AuthorizationResult {
	a.requests = append(a.requests, request)
	if a.policy != nil {
		return pdp_model.AuthorizationResult{Request: request, Policy: a.policy, Decision: pdp_model.DecisionAllow}
	}
	return pdp_model.AuthorizationResult{Request: request, Decision: pdp_model.DecisionDeny}
}

func (a *stubAuthorizer) Permits(result pdp_model.AuthorizationResult) bool {
	return result.Allowed() || a.mode == pdp_model.ModePermissive
}

func (a *stubAuthorizer) Mode() pdp_model.EnforcementMode        { return a.mode }
func (a *stubAuthorizer) SetMode(mode pdp_model.EnforcementMode) { a.mode = mode }
func (a *stubAuthorizer) Snapshot() *cache.PolicyIndex           { return a.index }
func (a *stubAuthorizer) LastRefresh() (refresh.Outcome, bool) {
	if a.outcome == nil {
		return refresh.Outcome{}, false
	}
	return *a.outcome, true
}

func newAuthzFixture(allowPermissive bool) (*AuthorizationService, *stubAuthorizer, *recordingBroadcaster, *mock_audit.MockAuditService) {
	authorizer := &stubAuthorizer{mode: pdp_model.ModeEnforcing, index: cache.Empty()}
	broadcaster := &recordingBroadcaster{}
	auditSvc := &mock_audit.MockAuditService{}
	return NewAuthorizationService(authorizer, broadcaster, auditSvc, allowPermissive), authorizer, broadcaster, auditSvc
}

func TestAuthorize_RejectsIncompleteRequest(t *testing.T) {
	svc, _, _, _ := newAuthzFixture(false)

	_, err := svc.Authorize(context.Background(), pdp_model.AuthorizationRequest{Privilege: "EDIT_ENTITY"})
	assert.ErrorIs(t, err, authz_errors.ErrInvalidAuthzRequest)

	_, err = svc.Authorize(context.Background(), pdp_model.AuthorizationRequest{
		Actor:     pdp_model.Actor{URN: "urn:li:corpuser:alice"},
		Privilege: "  ",
	})
	assert.ErrorIs(t, err, authz_errors.ErrInvalidAuthzRequest)
}

func TestAuthorize_Decisions(t *testing.T) {
	svc, authorizer, _, _ := newAuthzFixture(true)
	request := pdp_model.AuthorizationRequest{
		Actor:     pdp_model.Actor{URN: "urn:li:corpuser:alice"},
		Privilege: " EDIT_ENTITY ",
		Resource:  &pdp_model.ResourceSpec{},
	}

	deny, err := svc.Authorize(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, deny.Decision)
	assert.True(t, deny.Enforced)
	assert.False(t, deny.Permitted)
	assert.Equal(t, "EDIT_ENTITY", authorizer.requests[0].Privilege)
	assert.Nil(t, authorizer.requests[0].Resource, "an empty resource spec means no resource")

	authorizer.mode = pdp_model.ModePermissive
	permissive, err := svc.Authorize(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionDeny, permissive.Decision)
	assert.False(t, permissive.Enforced)
	assert.True(t, permissive.Permitted)

	authorizer.mode = pdp_model.ModeEnforcing
	authorizer.policy = &model.Policy{ID: "urn:li:dataHubPolicy:1"}
	allow, err := svc.Authorize(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.DecisionAllow, allow.Decision)
	assert.Equal(t, "urn:li:dataHubPolicy:1", allow.MatchedPolicyID)
	assert.True(t, allow.Permitted)
}

func TestSetMode(t *testing.T) {
	svc, authorizer, _, auditSvc := newAuthzFixture(false)

	_, err := svc.SetMode(context.Background(), "permissive", editorURN)
	assert.ErrorIs(t, err, authz_errors.ErrUnsafeModeDisallowed)
	_, err = svc.SetMode(context.Background(), "audit-only", editorURN)
	assert.ErrorIs(t, err, authz_errors.ErrInvalidMode)
	assert.Equal(t, pdp_model.ModeEnforcing, authorizer.mode)

	mode, err := svc.SetMode(context.Background(), "enforcing", editorURN)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.ModeEnforcing, mode)
	auditSvc.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestSetMode_RecordsChange(t *testing.T) {
	svc, authorizer, _, auditSvc := newAuthzFixture(true)
	auditSvc.On("Record", mock.Anything, mock.MatchedBy(func(log audit.AuditLog) bool {
		return log.Action == audit.ActionSetMode && log.ActorURN == editorURN
	})).Return(nil).Once()

	mode, err := svc.SetMode(context.Background(), "PERMISSIVE", editorURN)
	require.NoError(t, err)
	assert.Equal(t, pdp_model.ModePermissive, mode)
	assert.Equal(t, pdp_model.ModePermissive, authorizer.mode)
	auditSvc.AssertExpectations(t)
}

func TestInvalidateCache_LocalAndRemote(t *testing.T) {
	svc, authorizer, broadcaster, auditSvc := newAuthzFixture(false)
	auditSvc.On("Record", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.InvalidateCache(context.Background(), editorURN))
	assert.Equal(t, int32(1), authorizer.calls.Load())
	assert.Equal(t, []string{model.ChangeManual + ":"}, broadcaster.recorded())
}

func TestInvalidateCache_BroadcastFailure(t *testing.T) {
	svc, authorizer, broadcaster, auditSvc := newAuthzFixture(false)
	auditSvc.On("Record", mock.Anything, mock.Anything).Return(nil)
	broadcaster.err = errors.New("redis down")

	assert.Error(t, svc.InvalidateCache(context.Background(), editorURN))
	assert.Equal(t, int32(1), authorizer.calls.Load(), "local rebuild is queued regardless")
}

func TestIndexSummary(t *testing.T) {
	svc, authorizer, _, _ := newAuthzFixture(false)
	b := cache.NewBuilder()
	b.Add(&model.Policy{ID: "p1", Privileges: []string{"EDIT_ENTITY", "VIEW_ENTITY_PAGE"}})
	b.Add(&model.Policy{ID: "p2", Privileges: []string{"EDIT_ENTITY"}})
	authorizer.index = b.Build()
	authorizer.outcome = &refresh.Outcome{
		Status:   refresh.StatusFetchFailed,
		Duration: 1500 * time.Millisecond,
		Err:      errors.New("store down"),
	}

	summary := svc.IndexSummary()
	assert.Equal(t, 2, summary.Policies)
	assert.Equal(t, map[string]int{"EDIT_ENTITY": 2, "VIEW_ENTITY_PAGE": 1}, summary.Privileges)
	require.NotNil(t, summary.LastRefresh)
	assert.Equal(t, refresh.StatusFetchFailed, summary.LastRefresh.Status)
	assert.Equal(t, int64(1500), summary.LastRefresh.DurationMS)
	assert.Equal(t, "store down", summary.LastRefresh.Error)
}

type stubResolver struct {
	groups    []string
	owners    []string
	groupsErr error
	calls     int
}

func (r *stubResolver) ResolveGroups(ctx context.Context, actorURN string) ([]string, error) {
	r.calls++
	return r.groups, r.groupsErr
}

func (r *stubResolver) ResolveOwners(ctx context.Context, resourceURN string) ([]string, error) {
	r.calls++
	return r.owners, nil
}

func TestAuthorize_ResolvesMissingGroupsAndOwners(t *testing.T) {
	svc, authorizer, _, _ := newAuthzFixture(false)
	resolver := &stubResolver{groups: []string{"urn:li:corpGroup:eng"}, owners: []string{"urn:li:corpGroup:eng"}}
	svc.WithResolver(resolver)

	resource := &pdp_model.ResourceSpec{Type: "dataset", Resource: "urn:li:dataset:1"}
	_, err := svc.Authorize(context.Background(), pdp_model.AuthorizationRequest{
		Actor:     pdp_model.Actor{URN: "urn:li:corpuser:alice"},
		Privilege: "EDIT_ENTITY",
		Resource:  resource,
	})
	require.NoError(t, err)

	sent := authorizer.requests[0]
	assert.Equal(t, []string{"urn:li:corpGroup:eng"}, sent.Actor.Groups)
	assert.Equal(t, []string{"urn:li:corpGroup:eng"}, sent.Resource.Owners)
	assert.Nil(t, resource.Owners, "caller's resource spec is not modified")
}

func TestAuthorize_KeepsSuppliedGroups(t *testing.T) {
	svc, authorizer, _, _ := newAuthzFixture(false)
	resolver := &stubResolver{groupsErr: errors.New("neo4j down")}
	svc.WithResolver(resolver)

	_, err := svc.Authorize(context.Background(), pdp_model.AuthorizationRequest{
		Actor:     pdp_model.Actor{URN: "urn:li:corpuser:alice", Groups: []string{}},
		Privilege: "MANAGE_POLICIES",
	})
	require.NoError(t, err)
	assert.Zero(t, resolver.calls)
	assert.Empty(t, authorizer.requests[0].Actor.Groups)

	_, err = svc.Authorize(context.Background(), pdp_model.AuthorizationRequest{
		Actor:     pdp_model.Actor{URN: "urn:li:corpuser:bob"},
		Privilege: "MANAGE_POLICIES",
	})
	require.NoError(t, err, "resolution failures do not fail the request")
	assert.Nil(t, authorizer.requests[1].Actor.Groups)
}
