package model

import "github.com/dev-mohitbeniwal/echo/authz/model"

type Decision string

const (
	DecisionAllow Decision = "ALLOW"
	DecisionDeny  Decision = "DENY"
)

// AuthorizationResult is the outcome of one authorization request. Policy is
// the first granting policy in fetch order and is nil on DENY.
type AuthorizationResult struct {
	Request  AuthorizationRequest `json:"request"`
	Policy   *model.Policy        `json:"policy,omitempty"`
	Decision Decision             `json:"decision"`
}

func (r AuthorizationResult) Allowed() bool {
	return r.Decision == DecisionAllow
}

// MatchedPolicyID returns the matching policy id, or "" on DENY.
func (r AuthorizationResult) MatchedPolicyID() string {
	if r.Policy == nil {
		return ""
	}
	return r.Policy.ID
}
