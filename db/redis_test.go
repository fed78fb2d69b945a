package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/authz/model"
)

func TestSealPolicy(t *testing.T) {
	require.NoError(t, SetEncryptionKey([]byte("0123456789abcdef0123456789abcdef")))

	policy := &model.Policy{
		ID:         "urn:li:dataHubPolicy:admins",
		Type:       model.PolicyTypePlatform,
		State:      model.PolicyStateActive,
		Privileges: []string{model.PrivilegeManagePolicies},
		Actors:     model.ActorFilter{Groups: []string{"urn:li:corpGroup:admins"}},
	}

	sealed, err := sealPolicy(policy)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "MANAGE_POLICIES")

	again, err := sealPolicy(policy)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "each seal uses a fresh nonce")

	opened, err := openPolicy(sealed)
	require.NoError(t, err)
	assert.Equal(t, policy.ID, opened.ID)
	assert.Equal(t, policy.Actors, opened.Actors)
}

func TestOpenPolicy_RejectsTamperedValue(t *testing.T) {
	require.NoError(t, SetEncryptionKey([]byte("0123456789abcdef0123456789abcdef")))

	sealed, err := sealPolicy(&model.Policy{ID: "urn:li:dataHubPolicy:x"})
	require.NoError(t, err)

	_, err = openPolicy(sealed[:len(sealed)-4] + "AAAA")
	assert.Error(t, err)

	_, err = openPolicy("not base64!")
	assert.Error(t, err)
}

func TestSetEncryptionKey_Length(t *testing.T) {
	assert.Error(t, SetEncryptionKey([]byte("short")))
}

func TestRateLimitMember_UniqueWithinSameNanosecond(t *testing.T) {
	const now = int64(1700000000000000000)

	first := rateLimitMember(now)
	second := rateLimitMember(now)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "1700000000000000000-"))
	assert.True(t, strings.HasPrefix(second, "1700000000000000000-"))
}
