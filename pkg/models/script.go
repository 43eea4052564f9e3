package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScriptStatus tracks the analysis pipeline for an uploaded script.
type ScriptStatus string

const (
	ScriptStatusProcessing ScriptStatus = "PROCESSING"
	ScriptStatusComplete   ScriptStatus = "COMPLETE"
	ScriptStatusFailed     ScriptStatus = "FAILED"
)

// Script is one uploaded version of a screenplay. The PDF itself is never
// stored; only extracted risk flags are kept.
type Script struct {
	ID          uuid.UUID    `json:"id"`
	ProjectID   uuid.UUID    `json:"project_id"`
	Filename    string       `json:"filename"`
	VersionName *string      `json:"version_name,omitempty"`
	TotalPages  int          `json:"total_pages"`
	RiskCount   int          `json:"risk_count"`
	Status      ScriptStatus `json:"status"`
	UploadedBy  uuid.UUID    `json:"uploaded_by"`
	UploadedAt  time.Time    `json:"uploaded_at"`
	DeletedAt   *time.Time   `json:"-"`
}

// DisplayVersionName returns the version name, or UnnamedVersion when unset.
func (s *Script) DisplayVersionName() string {
	if s.VersionName == nil || *s.VersionName == "" {
		return UnnamedVersion
	}
	return *s.VersionName
}

// DefaultVersionName is the name given to the n-th script of a project
// when the uploader does not supply one.
func DefaultVersionName(n int) string {
	return fmt.Sprintf("Draft %d", n)
}

// ScriptDetail is a script with its risk flags.
type ScriptDetail struct {
	Script
	Risks []*RiskFlag `json:"risks"`
}
