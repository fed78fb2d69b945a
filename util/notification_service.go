// util/notification_service.go

package util

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/authz/db"
	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
)

type NotificationService struct{}

func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

func (n *NotificationService) NotifyPolicyChange(ctx context.Context, changeType string, policy model.Policy) error {
	switch changeType {
	case model.ChangeCreated:
		logger.Info("NOTIFICATION: New policy created",
			zap.String("policyID", policy.ID),
			zap.String("displayName", policy.DisplayName),
			zap.Strings("privileges", policy.Privileges))
	case model.ChangeUpdated:
		logger.Info("NOTIFICATION: Policy updated",
			zap.String("policyID", policy.ID),
			zap.String("displayName", policy.DisplayName),
			zap.Int("version", policy.Version))
	case model.ChangeDeleted:
		logger.Info("NOTIFICATION: Policy deleted",
			zap.String("policyID", policy.ID))
	default:
		return fmt.Errorf("unknown change type: %s", changeType)
	}
	return nil
}

// InvalidationBroadcaster tells other instances that their policy cache is
// stale.
type InvalidationBroadcaster interface {
	Broadcast(ctx context.Context, policyID, changeType string) error
}

// RedisBroadcaster publishes invalidations on a redis channel, stamped with
// this instance's id so the instance can ignore its own messages.
type RedisBroadcaster struct {
	InstanceID string
	Channel    string
}

func NewRedisBroadcaster(instanceID, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{InstanceID: instanceID, Channel: channel}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, policyID, changeType string) error {
	return db.PublishInvalidation(ctx, b.Channel, model.PolicyInvalidation{
		Origin:     b.InstanceID,
		PolicyID:   policyID,
		ChangeType: changeType,
		At:         time.Now().UTC(),
	})
}
