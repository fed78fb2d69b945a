package model

import "strings"

// Actor is the identity a request is made on behalf of. Groups are resolved
// upstream so that policy evaluation stays free of I/O.
type Actor struct {
	URN    string   `json:"urn"`
	Groups []string `json:"groups,omitempty"`
}

// ResourceSpec identifies the target of a privilege request.
type ResourceSpec struct {
	Type     string   `json:"type"`
	Resource string   `json:"resource"`
	Owners   []string `json:"owners,omitempty"`
}

// AuthorizationRequest asks whether Actor holds Privilege, optionally against
// Resource. A nil Resource requests an actor-wide privilege.
type AuthorizationRequest struct {
	Actor     Actor         `json:"actor"`
	Privilege string        `json:"privilege"`
	Resource  *ResourceSpec `json:"resource,omitempty"`
}

// NewAuthorizationRequest trims the privilege and builds a request.
func NewAuthorizationRequest(actor Actor, privilege string, resource *ResourceSpec) AuthorizationRequest {
	return AuthorizationRequest{
		Actor:     actor,
		Privilege: strings.TrimSpace(privilege),
		Resource:  resource,
	}
}
