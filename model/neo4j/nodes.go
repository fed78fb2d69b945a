// model/neo4j/nodes.go
package echo_neo4j

// Node Labels
const (
	// LabelPolicy represents a stored access control policy entity
	LabelPolicy = "DataHubPolicy"

	// LabelPolicyInfo represents the policy info aspect attached to a policy entity
	LabelPolicyInfo = "DataHubPolicyInfo"

	// LabelCorpUser represents a user actor
	LabelCorpUser = "CorpUser"

	// LabelCorpGroup represents a group of actors
	LabelCorpGroup = "CorpGroup"
)

// Relationship Types
const (
	// RelHasAspect links an entity to one of its aspects
	RelHasAspect = "HAS_ASPECT"

	// RelBelongsToGroup represents the relationship between a user and their groups
	RelBelongsToGroup = "BELONGS_TO_GROUP"

	// RelOwnedBy links a metadata entity to a user or group owning it
	RelOwnedBy = "OWNED_BY"
)

// Entity Types
const (
	// EntityTypePolicy is the entity type name the store lists policies under
	EntityTypePolicy = "dataHubPolicy"

	// AspectPolicyInfo is the name of the aspect carrying the policy payload
	AspectPolicyInfo = "dataHubPolicyInfo"
)

// Attribute Keys
const (
	AttrURN        = "urn"
	AttrAspectName = "name"
	AttrCreatedAt  = "createdAt"
	AttrUpdatedAt  = "updatedAt"
)
