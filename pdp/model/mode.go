package model

import (
	"fmt"
	"strings"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
)

// EnforcementMode tells callers whether a DENY should block the operation.
type EnforcementMode string

const (
	ModeEnforcing  EnforcementMode = "ENFORCING"
	ModePermissive EnforcementMode = "PERMISSIVE"
)

// ParseMode parses a configured mode. An empty value means ENFORCING, and
// PERMISSIVE is only accepted when allowPermissive is set.
func ParseMode(raw string, allowPermissive bool) (EnforcementMode, error) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	switch EnforcementMode(raw) {
	case "", ModeEnforcing:
		return ModeEnforcing, nil
	case ModePermissive:
		if !allowPermissive {
			return "", authz_errors.ErrUnsafeModeDisallowed
		}
		return ModePermissive, nil
	default:
		return "", fmt.Errorf("%w: %q (expected ENFORCING|PERMISSIVE)", authz_errors.ErrInvalidMode, raw)
	}
}

func (m EnforcementMode) Valid() bool {
	return m == ModeEnforcing || m == ModePermissive
}
