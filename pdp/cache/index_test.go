package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-mohitbeniwal/echo/authz/model"
)

func TestEmptyIndex(t *testing.T) {
	idx := Empty()

	assert.Empty(t, idx.Get(model.PrivilegeEditEntity))
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Privileges())
}

func TestNilIndexIsEmpty(t *testing.T) {
	var idx *PolicyIndex

	assert.Nil(t, idx.Get(model.PrivilegeEditEntity))
	assert.Equal(t, 0, idx.Len())
}

func TestBuilder_IndexesEveryPrivilegeInOrder(t *testing.T) {
	p1 := &model.Policy{ID: "p1", Privileges: []string{"EDIT_ENTITY", "VIEW_ENTITY_PAGE"}}
	p2 := &model.Policy{ID: "p2", Privileges: []string{"EDIT_ENTITY"}}
	p3 := &model.Policy{ID: "p3", Privileges: []string{"MANAGE_POLICIES", "EDIT_ENTITY", "EDIT_ENTITY"}}

	b := NewBuilder()
	b.Add(p1)
	b.Add(p2)
	b.Add(p3)
	idx := b.Build()

	assert.Equal(t, []*model.Policy{p1, p2, p3}, idx.Get("EDIT_ENTITY"))
	assert.Equal(t, []*model.Policy{p1}, idx.Get("VIEW_ENTITY_PAGE"))
	assert.Equal(t, []*model.Policy{p3}, idx.Get("MANAGE_POLICIES"))
	assert.Nil(t, idx.Get("VIEW_ANALYTICS"))
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []string{"EDIT_ENTITY", "MANAGE_POLICIES", "VIEW_ENTITY_PAGE"}, idx.Privileges())
}

func TestBuilder_PolicyWithoutPrivileges(t *testing.T) {
	b := NewBuilder()
	b.Add(&model.Policy{ID: "p1"})
	idx := b.Build()

	assert.Equal(t, 1, idx.Len())
	assert.Empty(t, idx.Privileges())
}
