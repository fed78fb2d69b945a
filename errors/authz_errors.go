// errors/authz_errors.go
package errors

import "errors"

var (
	// ErrMissingPolicyPayload marks a store record that carries no policy
	// info aspect. It is a data-integrity defect, never transient.
	ErrMissingPolicyPayload = errors.New("policy record has no policy info aspect")
	ErrStoreUnavailable     = errors.New("policy store unavailable")
	ErrInvalidMode          = errors.New("invalid authorization mode")
	ErrUnsafeModeDisallowed = errors.New("permissive authorization mode requires authorization.unsafeAllowPermissive")
	ErrInvalidAuthzRequest  = errors.New("invalid authorization request")
)
