// Package events publishes clearance domain events to RabbitMQ.
package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType is used as the routing key on the topic exchange.
type EventType string

const (
	EventTypeRiskStatusChanged EventType = "risk.status_changed"
	EventTypeUserMentioned     EventType = "user.mentioned"
	EventTypeScriptAnalyzed    EventType = "script.analyzed"
)

// Envelope wraps every event with its type and timestamp.
type Envelope struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// RiskStatusChanged is emitted after a status transition is persisted.
type RiskStatusChanged struct {
	ProjectID uuid.UUID `json:"project_id"`
	RiskID    uuid.UUID `json:"risk_id"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	From      string    `json:"from"`
	To        string    `json:"to"`
}

// UserMentioned is emitted for each user @mentioned in a risk comment.
type UserMentioned struct {
	ProjectID       uuid.UUID `json:"project_id"`
	RiskID          uuid.UUID `json:"risk_id"`
	CommentID       uuid.UUID `json:"comment_id"`
	AuthorID        uuid.UUID `json:"author_id"`
	MentionedUserID uuid.UUID `json:"mentioned_user_id"`
}

// ScriptAnalyzed is emitted when a script upload finishes processing.
type ScriptAnalyzed struct {
	ProjectID  uuid.UUID `json:"project_id"`
	ScriptID   uuid.UUID `json:"script_id"`
	Status     string    `json:"status"`
	TotalPages int       `json:"total_pages"`
	RiskCount  int       `json:"risk_count"`
}

func newEnvelope(t EventType, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
