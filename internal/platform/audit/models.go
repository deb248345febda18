// Package audit defines the audit event model and publishers for
// security-relevant admission decisions.
package audit

import (
	"context"
	"time"
)

// Event is one security-relevant occurrence: a rate-limit denial, a block,
// a rejected credential, an admin remediation.
type Event struct {
	Action    string    `json:"action"`
	Subject   string    `json:"subject"` // anonymized address or subject id
	Reason    string    `json:"reason,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits audit events to a durable sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
