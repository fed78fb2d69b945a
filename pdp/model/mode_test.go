package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
)

func TestParseMode_Default(t *testing.T) {
	m, err := ParseMode("", false)
	require.NoError(t, err)
	assert.Equal(t, ModeEnforcing, m)
}

func TestParseMode_CaseInsensitive(t *testing.T) {
	m, err := ParseMode(" enforcing ", false)
	require.NoError(t, err)
	assert.Equal(t, ModeEnforcing, m)
}

func TestParseMode_PermissiveRequiresUnsafe(t *testing.T) {
	_, err := ParseMode("permissive", false)
	assert.ErrorIs(t, err, authz_errors.ErrUnsafeModeDisallowed)

	m, err := ParseMode("permissive", true)
	require.NoError(t, err)
	assert.Equal(t, ModePermissive, m)
}

func TestParseMode_Invalid(t *testing.T) {
	_, err := ParseMode("nope", true)
	assert.ErrorIs(t, err, authz_errors.ErrInvalidMode)
	assert.False(t, EnforcementMode("nope").Valid())
}
