package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	"github.com/dev-mohitbeniwal/echo/authz/model"
)

const seedYAML = `
policies:
  - id: urn:li:dataHubPolicy:0
    type: PLATFORM
    state: ACTIVE
    displayName: Root user - all platform privileges
    privileges: [MANAGE_POLICIES, MANAGE_USERS_AND_GROUPS]
    actors:
      users: ["urn:li:corpuser:datahub"]
    editable: false
  - id: urn:li:dataHubPolicy:7
    type: METADATA
    state: ACTIVE
    displayName: All users - view entity pages
    privileges: [VIEW_ENTITY_PAGE]
    actors:
      allUsers: true
    resources:
      allResources: true
    editable: true
`

func TestParseBootstrapPolicies(t *testing.T) {
	policies, err := parseBootstrapPolicies([]byte(seedYAML))
	require.NoError(t, err)
	require.Len(t, policies, 2)

	assert.Equal(t, "urn:li:dataHubPolicy:0", policies[0].ID)
	assert.Equal(t, model.PolicyTypePlatform, policies[0].Type)
	assert.False(t, policies[0].Editable)
	assert.Equal(t, []string{"urn:li:corpuser:datahub"}, policies[0].Actors.Users)
	assert.True(t, policies[1].Actors.AllUsers)
	assert.True(t, policies[1].Resources.AllResources)
}

func TestParseBootstrapPolicies_Invalid(t *testing.T) {
	_, err := parseBootstrapPolicies([]byte("policies:\n  - type: PLATFORM\n"))
	assert.ErrorIs(t, err, authz_errors.ErrInvalidBootstrapFile)

	_, err = parseBootstrapPolicies([]byte("policies:\n  - id: a\n  - id: a\n"))
	assert.ErrorIs(t, err, authz_errors.ErrInvalidBootstrapFile)

	_, err = parseBootstrapPolicies([]byte("policies: [\n"))
	assert.ErrorIs(t, err, authz_errors.ErrInvalidBootstrapFile)
}

func TestBootstrapPolicies_CreatesOnlyMissing(t *testing.T) {
	f := newFixture()
	policies, err := parseBootstrapPolicies([]byte(seedYAML))
	require.NoError(t, err)

	existing := policies[0]
	f.repo.On("GetPolicy", mock.Anything, existing.ID).Return(&existing, nil)
	f.repo.On("GetPolicy", mock.Anything, policies[1].ID).Return(nil, authz_errors.ErrPolicyNotFound)
	f.repo.On("CreatePolicy", mock.Anything, mock.MatchedBy(func(p model.Policy) bool {
		return p.ID == policies[1].ID
	}), "urn:li:corpuser:__datahub_system").Return(policies[1].ID, nil)

	created, err := BootstrapPolicies(context.Background(), f.svc, policies, "urn:li:corpuser:__datahub_system")
	require.NoError(t, err)
	f.bus.Wait()

	assert.Equal(t, 1, created)
	f.repo.AssertNumberOfCalls(t, "CreatePolicy", 1)
}
