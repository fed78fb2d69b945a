// audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Audit actions recorded for policy mutations.
const (
	ActionCreatePolicy = "CREATE_POLICY"
	ActionUpdatePolicy = "UPDATE_POLICY"
	ActionDeletePolicy = "DELETE_POLICY"
	ActionSetMode      = "SET_AUTHORIZATION_MODE"
	ActionInvalidate   = "INVALIDATE_POLICY_CACHE"
)

type AuditLog struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	ActorURN      string          `json:"actor_urn"`
	Action        string          `json:"action"`
	PolicyID      string          `json:"policy_id,omitempty"`
	ChangeDetails json.RawMessage `json:"change_details,omitempty"`
}

// Query filters audit logs. Empty fields are ignored.
type Query struct {
	From     time.Time
	To       time.Time
	ActorURN string
	PolicyID string
	Limit    int
}
