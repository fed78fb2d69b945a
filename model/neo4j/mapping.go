// model/neo4j/mapping.go
package echo_neo4j

import (
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/dev-mohitbeniwal/echo/authz/model"
	helper_util "github.com/dev-mohitbeniwal/echo/authz/util/helper"
)

// PolicyInfoProps converts a policy into the property map stored on its
// policy info aspect node. Filters are stored as JSON strings.
func PolicyInfoProps(policy *model.Policy) (map[string]interface{}, error) {
	actorsJSON, err := json.Marshal(policy.Actors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy actors: %w", err)
	}
	resourcesJSON, err := json.Marshal(policy.Resources)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy resources: %w", err)
	}

	privileges := make([]interface{}, len(policy.Privileges))
	for i, p := range policy.Privileges {
		privileges[i] = p
	}

	return map[string]interface{}{
		AttrAspectName: AspectPolicyInfo,
		"type":         policy.Type,
		"state":        policy.State,
		"displayName":  policy.DisplayName,
		"description":  policy.Description,
		"privileges":   privileges,
		"actors":       string(actorsJSON),
		"resources":    string(resourcesJSON),
		"condition":    policy.Condition,
		"editable":     policy.Editable,
		"version":      int64(policy.Version),
	}, nil
}

// PolicyFromInfoNode maps a policy info aspect node back to a policy.
func PolicyFromInfoNode(urn string, node neo4j.Node) (*model.Policy, error) {
	props := node.Props
	policy := &model.Policy{ID: urn}

	if t, ok := props["type"].(string); ok {
		policy.Type = t
	} else {
		return nil, fmt.Errorf("failed to assert type for policy type: %v", props["type"])
	}

	if state, ok := props["state"].(string); ok {
		policy.State = state
	} else {
		return nil, fmt.Errorf("failed to assert type for policy state: %v", props["state"])
	}

	policy.DisplayName, _ = props["displayName"].(string)
	policy.Description, _ = props["description"].(string)
	policy.Condition, _ = props["condition"].(string)
	policy.Editable, _ = props["editable"].(bool)
	if version, ok := props["version"].(int64); ok {
		policy.Version = int(version)
	}

	switch privileges := props["privileges"].(type) {
	case []interface{}:
		for _, p := range privileges {
			s, ok := p.(string)
			if !ok {
				return nil, fmt.Errorf("failed to assert type for policy privilege: %v", p)
			}
			policy.Privileges = append(policy.Privileges, s)
		}
	case []string:
		policy.Privileges = append(policy.Privileges, privileges...)
	case nil:
	default:
		return nil, fmt.Errorf("failed to assert type for policy privileges: %v", props["privileges"])
	}

	if actorsJSON, ok := props["actors"].(string); ok && actorsJSON != "" {
		if err := json.Unmarshal([]byte(actorsJSON), &policy.Actors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy actors: %w", err)
		}
	}

	if resourcesJSON, ok := props["resources"].(string); ok && resourcesJSON != "" {
		if err := json.Unmarshal([]byte(resourcesJSON), &policy.Resources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal policy resources: %w", err)
		}
	}

	return policy, nil
}

// EntityFromNodes assembles a policy entity from its entity node and the
// aspect nodes attached to it. Aspects other than policy info are kept by
// name only.
func EntityFromNodes(entityNode neo4j.Node, aspectNodes []interface{}) (*model.Entity, error) {
	urn, ok := entityNode.Props[AttrURN].(string)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for entity urn: %v", entityNode.Props[AttrURN])
	}

	entity := &model.Entity{URN: urn}
	for _, raw := range aspectNodes {
		node, ok := raw.(neo4j.Node)
		if !ok {
			continue
		}
		name, _ := node.Props[AttrAspectName].(string)
		aspect := model.Aspect{Name: name}
		if name == AspectPolicyInfo {
			policy, err := PolicyFromInfoNode(urn, node)
			if err != nil {
				return nil, fmt.Errorf("entity %s: %w", urn, err)
			}
			policy.CreatedAt = helper_util.ParseTime(entityNode.Props[AttrCreatedAt])
			policy.UpdatedAt = helper_util.ParseTime(entityNode.Props[AttrUpdatedAt])
			aspect.PolicyInfo = policy
		}
		entity.Aspects = append(entity.Aspects, aspect)
	}
	return entity, nil
}
