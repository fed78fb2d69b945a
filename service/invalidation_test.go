package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/authz/model"
)

func TestInvalidationListener(t *testing.T) {
	invalidator := &countingInvalidator{}
	policyCache := newMemoryCache()
	require.NoError(t, policyCache.SetPolicy(context.Background(), model.Policy{ID: "p1"}))
	listener := NewInvalidationListener("instance-a", invalidator, policyCache)

	listener.Handle(model.PolicyInvalidation{Origin: "instance-a", PolicyID: "p1", ChangeType: model.ChangeUpdated})
	assert.Zero(t, invalidator.calls.Load(), "own messages are ignored")
	cached, _ := policyCache.GetPolicy(context.Background(), "p1")
	assert.NotNil(t, cached)

	listener.Handle(model.PolicyInvalidation{Origin: "instance-b", PolicyID: "p1", ChangeType: model.ChangeUpdated})
	assert.Equal(t, int32(1), invalidator.calls.Load())
	cached, _ = policyCache.GetPolicy(context.Background(), "p1")
	assert.Nil(t, cached)

	listener.Handle(model.PolicyInvalidation{Origin: "instance-b", ChangeType: model.ChangeManual})
	assert.Equal(t, int32(2), invalidator.calls.Load())
}
