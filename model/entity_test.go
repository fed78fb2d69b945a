package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
)

func TestPolicyFromEntity(t *testing.T) {
	t.Run("ReturnsPolicyInfoAspect", func(t *testing.T) {
		entity := &Entity{
			URN: "urn:li:dataHubPolicy:1",
			Aspects: []Aspect{
				{Name: "ownership"},
				{Name: "dataHubPolicyInfo", PolicyInfo: &Policy{DisplayName: "Editors"}},
			},
		}

		policy, err := PolicyFromEntity(entity)
		require.NoError(t, err)
		assert.Equal(t, "Editors", policy.DisplayName)
		assert.Equal(t, "urn:li:dataHubPolicy:1", policy.ID)
	})

	t.Run("MissingPayload", func(t *testing.T) {
		entity := &Entity{URN: "urn:li:dataHubPolicy:2", Aspects: []Aspect{{Name: "ownership"}}}

		_, err := PolicyFromEntity(entity)
		assert.True(t, errors.Is(err, authz_errors.ErrMissingPolicyPayload))
		assert.Contains(t, err.Error(), "urn:li:dataHubPolicy:2")
	})

	t.Run("NilEntity", func(t *testing.T) {
		_, err := PolicyFromEntity(nil)
		assert.ErrorIs(t, err, authz_errors.ErrMissingPolicyPayload)
	})
}

func TestPolicyGrants(t *testing.T) {
	policy := &Policy{State: PolicyStateActive, Privileges: []string{PrivilegeEditEntity, PrivilegeEditEntityTags}}

	assert.True(t, policy.IsActive())
	assert.True(t, policy.Grants(PrivilegeEditEntityTags))
	assert.False(t, policy.Grants(PrivilegeManagePolicies))
}
