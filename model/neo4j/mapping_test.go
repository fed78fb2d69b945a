package echo_neo4j

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/authz/model"
)

const policyURN = "urn:li:dataHubPolicy:editors"

func TestEntityFromNodes(t *testing.T) {
	policy := &model.Policy{
		Type:       model.PolicyTypeMetadata,
		State:      model.PolicyStateActive,
		Privileges: []string{model.PrivilegeEditEntity, model.PrivilegeEditEntityTags},
		Actors:     model.ActorFilter{Groups: []string{"urn:li:corpGroup:editors"}},
		Resources:  model.ResourceFilter{Type: "dataset", AllResources: true},
		Condition:  `size(groups) > 0`,
		Version:    3,
	}
	props, err := PolicyInfoProps(policy)
	require.NoError(t, err)

	entityNode := neo4j.Node{Props: map[string]any{
		AttrURN:       policyURN,
		AttrCreatedAt: "2024-05-01T10:00:00Z",
	}}
	aspects := []any{
		neo4j.Node{Props: map[string]any{AttrAspectName: "ownership"}},
		neo4j.Node{Props: props},
	}

	entity, err := EntityFromNodes(entityNode, aspects)
	require.NoError(t, err)
	assert.Equal(t, policyURN, entity.URN)
	require.Len(t, entity.Aspects, 2)
	assert.Nil(t, entity.Aspects[0].PolicyInfo)

	got, err := model.PolicyFromEntity(entity)
	require.NoError(t, err)
	assert.Equal(t, policyURN, got.ID)
	assert.Equal(t, policy.Privileges, got.Privileges)
	assert.Equal(t, policy.Actors, got.Actors)
	assert.Equal(t, policy.Resources, got.Resources)
	assert.Equal(t, policy.Condition, got.Condition)
	assert.Equal(t, 3, got.Version)
	assert.Equal(t, 2024, got.CreatedAt.Year())
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestEntityFromNodes_WithoutPolicyInfo(t *testing.T) {
	entity, err := EntityFromNodes(neo4j.Node{Props: map[string]any{AttrURN: policyURN}}, nil)
	require.NoError(t, err)

	_, err = model.PolicyFromEntity(entity)
	assert.Error(t, err)
}

func TestPolicyFromInfoNode_RejectsMissingState(t *testing.T) {
	_, err := PolicyFromInfoNode(policyURN, neo4j.Node{Props: map[string]any{"type": model.PolicyTypePlatform}})
	assert.Error(t, err)
}
