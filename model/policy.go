// model/policy.go
package model

import (
	"time"
)

// Policy types
const (
	PolicyTypeMetadata = "METADATA"
	PolicyTypePlatform = "PLATFORM"
)

// Policy states
const (
	PolicyStateActive   = "ACTIVE"
	PolicyStateInactive = "INACTIVE"
)

// Policy is the policy info aspect of a stored policy entity. Once loaded into
// a policy index it is shared between readers and must not be mutated.
type Policy struct {
	ID          string         `json:"id" yaml:"id"`
	Type        string         `json:"type" yaml:"type"`
	State       string         `json:"state" yaml:"state"`
	DisplayName string         `json:"display_name" yaml:"displayName"`
	Description string         `json:"description" yaml:"description"`
	Privileges  []string       `json:"privileges" yaml:"privileges"`
	Actors      ActorFilter    `json:"actors" yaml:"actors"`
	Resources   ResourceFilter `json:"resources" yaml:"resources"`
	Condition   string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Editable    bool           `json:"editable" yaml:"editable"`
	Version     int            `json:"version" yaml:"-"`
	CreatedAt   time.Time      `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time      `json:"updated_at" yaml:"-"`
}

// ActorFilter selects the actors a policy applies to.
type ActorFilter struct {
	Users          []string `json:"users,omitempty" yaml:"users,omitempty"`
	Groups         []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	ResourceOwners bool     `json:"resource_owners" yaml:"resourceOwners"`
	AllUsers       bool     `json:"all_users" yaml:"allUsers"`
	AllGroups      bool     `json:"all_groups" yaml:"allGroups"`
}

// ResourceFilter selects the resources a METADATA policy applies to.
type ResourceFilter struct {
	Type         string   `json:"type,omitempty" yaml:"type,omitempty"`
	Resources    []string `json:"resources,omitempty" yaml:"resources,omitempty"`
	AllResources bool     `json:"all_resources" yaml:"allResources"`
}

// IsActive reports whether the policy is in the ACTIVE state.
func (p *Policy) IsActive() bool {
	return p.State == PolicyStateActive
}

// Grants reports whether the policy declares the privilege.
func (p *Policy) Grants(privilege string) bool {
	for _, candidate := range p.Privileges {
		if candidate == privilege {
			return true
		}
	}
	return false
}

// PolicySearchCriteria filters policy listings. Empty fields match anything.
type PolicySearchCriteria struct {
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
	State       string `json:"state"`
	Privilege   string `json:"privilege"`
	Actor       string `json:"actor"`
	Limit       int    `json:"limit"`
}
