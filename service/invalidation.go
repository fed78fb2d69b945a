// service/invalidation.go
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
)

// InvalidationListener applies invalidation messages published by other
// instances.
type InvalidationListener struct {
	instanceID  string
	invalidator CacheInvalidator
	cache       PolicyCache
}

func NewInvalidationListener(instanceID string, invalidator CacheInvalidator, cache PolicyCache) *InvalidationListener {
	return &InvalidationListener{
		instanceID:  instanceID,
		invalidator: invalidator,
		cache:       cache,
	}
}

// Handle drops the changed policy from the read cache and queues an index
// rebuild. Messages from this instance are ignored.
func (l *InvalidationListener) Handle(msg model.PolicyInvalidation) {
	if msg.Origin == l.instanceID {
		return
	}
	logger.Info("Remote policy invalidation received",
		zap.String("origin", msg.Origin),
		zap.String("policyID", msg.PolicyID),
		zap.String("changeType", msg.ChangeType))

	if msg.PolicyID != "" && l.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := l.cache.DeletePolicy(ctx, msg.PolicyID); err != nil {
			logger.Warn("Failed to evict policy from cache", zap.Error(err), zap.String("policyID", msg.PolicyID))
		}
	}
	l.invalidator.InvalidateCache()
}
