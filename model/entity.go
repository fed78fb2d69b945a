// model/entity.go
package model

import (
	"fmt"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
)

// Aspect is one named facet of a stored entity. Only the policy info aspect
// carries a payload this service understands.
type Aspect struct {
	Name       string  `json:"name"`
	PolicyInfo *Policy `json:"policy_info,omitempty"`
}

// Entity is a full record hydrated from the policy store.
type Entity struct {
	URN     string   `json:"urn"`
	Aspects []Aspect `json:"aspects"`
}

// ListUrnsResult is one page of entity identifiers. Total is the store's
// count at the time of the call and may change between pages.
type ListUrnsResult struct {
	Entities []string `json:"entities"`
	Start    int      `json:"start"`
	Count    int      `json:"count"`
	Total    int      `json:"total"`
}

// PolicyFromEntity extracts the policy info aspect. A record without one is
// reported with ErrMissingPolicyPayload.
func PolicyFromEntity(entity *Entity) (*Policy, error) {
	if entity == nil {
		return nil, fmt.Errorf("nil entity: %w", authz_errors.ErrMissingPolicyPayload)
	}
	for _, aspect := range entity.Aspects {
		if aspect.PolicyInfo != nil {
			policy := aspect.PolicyInfo
			if policy.ID == "" {
				policy.ID = entity.URN
			}
			return policy, nil
		}
	}
	return nil, fmt.Errorf("entity %s: %w", entity.URN, authz_errors.ErrMissingPolicyPayload)
}
