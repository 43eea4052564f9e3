package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a threaded discussion entry on a risk flag.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	RiskID    uuid.UUID `json:"risk_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification tells a user something happened that involves them.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	RiskID    *uuid.UUID `json:"risk_id,omitempty"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	CreatedAt time.Time  `json:"created_at"`
}
