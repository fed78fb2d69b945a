package cache

import (
	"sort"

	"github.com/dev-mohitbeniwal/echo/authz/model"
)

// PolicyIndex maps a privilege to the policies declaring it, in the order the
// policies were fetched from the store. An index is immutable once built; a
// refresh produces a new one.
type PolicyIndex struct {
	byPrivilege map[string][]*model.Policy
	policies    int
}

// Empty returns an index with no policies. Every lookup against it denies.
func Empty() *PolicyIndex {
	return &PolicyIndex{byPrivilege: map[string][]*model.Policy{}}
}

// Get returns the candidate policies for a privilege. Absent privileges
// yield nil. Callers must not modify the returned slice.
func (idx *PolicyIndex) Get(privilege string) []*model.Policy {
	if idx == nil {
		return nil
	}
	return idx.byPrivilege[privilege]
}

// Len returns the number of distinct policies in the index.
func (idx *PolicyIndex) Len() int {
	if idx == nil {
		return 0
	}
	return idx.policies
}

// Privileges returns the indexed privilege names, sorted.
func (idx *PolicyIndex) Privileges() []string {
	if idx == nil {
		return nil
	}
	names := make([]string, 0, len(idx.byPrivilege))
	for name := range idx.byPrivilege {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder accumulates policies for a single refresh cycle. It is not safe for
// concurrent use and must not be used after Build.
type Builder struct {
	byPrivilege map[string][]*model.Policy
	policies    int
}

func NewBuilder() *Builder {
	return &Builder{byPrivilege: make(map[string][]*model.Policy)}
}

// Add appends the policy under every privilege it declares. A privilege
// declared twice by the same policy is indexed once.
func (b *Builder) Add(policy *model.Policy) {
	seen := make(map[string]struct{}, len(policy.Privileges))
	for _, privilege := range policy.Privileges {
		if _, dup := seen[privilege]; dup {
			continue
		}
		seen[privilege] = struct{}{}
		b.byPrivilege[privilege] = append(b.byPrivilege[privilege], policy)
	}
	b.policies++
}

// Build freezes the accumulated policies into an index.
func (b *Builder) Build() *PolicyIndex {
	idx := &PolicyIndex{byPrivilege: b.byPrivilege, policies: b.policies}
	b.byPrivilege = nil
	return idx
}
