// model/invalidation.go
package model

import "time"

// Policy change types carried by events and invalidation messages.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
	ChangeManual  = "manual"
)

// PolicyInvalidation tells every instance sharing a policy store that its
// policy cache is stale. Origin identifies the sending instance.
type PolicyInvalidation struct {
	Origin     string    `json:"origin"`
	PolicyID   string    `json:"policy_id,omitempty"`
	ChangeType string    `json:"change_type"`
	At         time.Time `json:"at"`
}
