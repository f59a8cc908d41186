// Package queue defines the domain events this service exchanges over
// RabbitMQ and the background consumer that records them.
package queue

import "time"

// UserRegisteredQueueName is the durable queue carrying registration events.
const UserRegisteredQueueName = "user.registered"

// UserRegisteredEvent is published after a user has been persisted, so
// downstream services (mail, CRM, provisioning) can react without calling
// back into this service.  EventID is a uuid for deduplication on the
// consumer side.  No credential material is ever included.
type UserRegisteredEvent struct {
	EventID    string    `json:"event_id"`
	UserID     uint64    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	TenantID   *uint64   `json:"tenant_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
