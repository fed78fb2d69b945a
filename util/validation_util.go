// util/validation_util.go

package util

import (
	"fmt"
	"strings"

	authz_errors "github.com/dev-mohitbeniwal/echo/authz/errors"
	"github.com/dev-mohitbeniwal/echo/authz/model"
	"github.com/dev-mohitbeniwal/echo/authz/pdp/engine"
)

type ValidationUtil struct {
	conditions *engine.ConditionCache
}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{conditions: engine.NewConditionCache()}
}

// ValidatePolicy rejects policies the evaluator could never apply. Every
// error wraps ErrInvalidPolicyData.
func (v *ValidationUtil) ValidatePolicy(policy model.Policy) error {
	if strings.TrimSpace(policy.DisplayName) == "" {
		return invalid("policy display name cannot be empty")
	}
	if policy.Type != model.PolicyTypeMetadata && policy.Type != model.PolicyTypePlatform {
		return invalid("policy type must be %s or %s", model.PolicyTypeMetadata, model.PolicyTypePlatform)
	}
	if policy.State != model.PolicyStateActive && policy.State != model.PolicyStateInactive {
		return invalid("policy state must be %s or %s", model.PolicyStateActive, model.PolicyStateInactive)
	}
	if len(policy.Privileges) == 0 {
		return invalid("policy must grant at least one privilege")
	}
	for _, privilege := range policy.Privileges {
		if strings.TrimSpace(privilege) == "" {
			return invalid("policy privileges cannot be blank")
		}
	}
	if policy.Type == model.PolicyTypePlatform && (policy.Resources.Type != "" || len(policy.Resources.Resources) > 0) {
		return invalid("platform policies cannot filter resources")
	}
	actors := policy.Actors
	if !actors.AllUsers && !actors.AllGroups && !actors.ResourceOwners && len(actors.Users) == 0 && len(actors.Groups) == 0 {
		return invalid("policy must match at least one actor")
	}
	if policy.Condition != "" {
		if err := v.conditions.Compile(policy.Condition); err != nil {
			return invalid("policy condition: %v", err)
		}
	}
	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", authz_errors.ErrInvalidPolicyData, fmt.Sprintf(format, args...))
}
