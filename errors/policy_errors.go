// errors/policy_errors.go
package errors

import "errors"

var (
	ErrPolicyNotFound        = errors.New("policy not found")
	ErrDatabaseOperation     = errors.New("database operation failed")
	ErrInvalidPolicyData     = errors.New("invalid policy data")
	ErrPolicyConflict        = errors.New("policy conflict")
	ErrInternalServer        = errors.New("internal server error")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidPagination     = errors.New("invalid pagination parameters")
	ErrPolicyNotEditable     = errors.New("policy is not editable")
	ErrInvalidBootstrapFile  = errors.New("invalid bootstrap policy file")
	ErrInvalidSearchCriteria = errors.New("invalid search criteria")
)
