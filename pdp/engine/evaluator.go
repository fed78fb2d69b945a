package engine

import (
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/authz/pdp/model"
)

// PolicyEngine decides whether a single policy grants a request. It keeps no
// state besides compiled condition programs, so its verdict depends only on
// its inputs.
type PolicyEngine struct {
	conditions *ConditionCache
}

func NewPolicyEngine() *PolicyEngine {
	return &PolicyEngine{
		conditions: NewConditionCache(),
	}
}

// EvaluatePolicy checks state, privilege, resource filter, actor filter and
// condition, in that order, and stops at the first mismatch.
func (pe *PolicyEngine) EvaluatePolicy(policy *model.Policy, actor pdp_model.Actor, privilege string, resource *pdp_model.ResourceSpec) pdp_model.PolicyEvaluationResult {
	result := pdp_model.PolicyEvaluationResult{
		PolicyID: policy.ID,
	}

	if !policy.IsActive() {
		result.Reason = "Policy is not active"
		return result
	}

	if !policy.Grants(privilege) {
		result.Reason = "Privilege not granted by policy"
		return result
	}

	if policy.Type == model.PolicyTypeMetadata && !pe.matchResource(policy.Resources, resource) {
		result.Reason = "Resource did not match"
		return result
	}

	if !pe.matchActor(policy.Actors, actor, resource) {
		result.Reason = "Actor did not match"
		return result
	}

	if policy.Condition != "" {
		ok, err := pe.conditions.Evaluate(policy.Condition, newConditionInput(actor, privilege, resource))
		if err != nil {
			logger.Warn("Policy condition could not be evaluated",
				zap.String("policyID", policy.ID),
				zap.String("condition", policy.Condition),
				zap.Error(err))
			result.Reason = "Condition could not be evaluated"
			return result
		}
		if !ok {
			result.Reason = "Condition did not match"
			return result
		}
	}

	result.Granted = true
	return result
}

// matchResource applies a METADATA policy's resource filter. A request with
// no resource only matches an unscoped all-resources filter.
func (pe *PolicyEngine) matchResource(filter model.ResourceFilter, resource *pdp_model.ResourceSpec) bool {
	if resource == nil {
		return filter.AllResources && filter.Type == ""
	}

	if filter.Type != "" && filter.Type != resource.Type {
		return false
	}

	if filter.AllResources {
		return true
	}

	return contains(filter.Resources, resource.Resource)
}

func (pe *PolicyEngine) matchActor(filter model.ActorFilter, actor pdp_model.Actor, resource *pdp_model.ResourceSpec) bool {
	if filter.AllUsers {
		return true
	}

	if contains(filter.Users, actor.URN) {
		return true
	}

	if filter.AllGroups && len(actor.Groups) > 0 {
		return true
	}

	for _, group := range actor.Groups {
		if contains(filter.Groups, group) {
			return true
		}
	}

	if filter.ResourceOwners && resource != nil {
		if contains(resource.Owners, actor.URN) {
			return true
		}
		for _, group := range actor.Groups {
			if contains(resource.Owners, group) {
				return true
			}
		}
	}

	return false
}

func contains(values []string, target string) bool {
	if target == "" {
		return false
	}
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
