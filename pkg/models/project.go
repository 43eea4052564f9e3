// Package models contains domain types for the clearance engine.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
)

// Project is a production whose scripts are reviewed for clearance risks.
type Project struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	StudioName      string     `json:"studio_name,omitempty"`
	Director        string     `json:"director,omitempty"`
	Producer        string     `json:"producer,omitempty"`
	ProductionEmail string     `json:"production_email,omitempty"`
	ProductionPhone string     `json:"production_phone,omitempty"`
	Genre           string     `json:"genre,omitempty"`
	Logline         string     `json:"logline,omitempty"`
	ExpectedRelease string     `json:"expected_release,omitempty"`
	IMDbLink        string     `json:"imdb_link,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`
}

// IsDeleted reports whether the project has been soft-deleted.
func (p *Project) IsDeleted() bool {
	return p.DeletedAt != nil
}

// ProjectDetailsUpdate carries a partial update of a project's details.
// Nil fields are left unchanged.
type ProjectDetailsUpdate struct {
	Name            *string `json:"name,omitempty"`
	StudioName      *string `json:"studioName,omitempty"`
	Director        *string `json:"director,omitempty"`
	Producer        *string `json:"producer,omitempty"`
	ProductionEmail *string `json:"productionEmail,omitempty"`
	ProductionPhone *string `json:"productionPhone,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	Logline         *string `json:"logline,omitempty"`
	ExpectedRelease *string `json:"expectedRelease,omitempty"`
	IMDbLink        *string `json:"imdbLink,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

// Apply copies the set fields of u onto p.
func (u *ProjectDetailsUpdate) Apply(p *Project) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, u.Name)
	set(&p.StudioName, u.StudioName)
	set(&p.Director, u.Director)
	set(&p.Producer, u.Producer)
	set(&p.ProductionEmail, u.ProductionEmail)
	set(&p.ProductionPhone, u.ProductionPhone)
	set(&p.Genre, u.Genre)
	set(&p.Logline, u.Logline)
	set(&p.ExpectedRelease, u.ExpectedRelease)
	set(&p.IMDbLink, u.IMDbLink)
	set(&p.Notes, u.Notes)
}

// ProjectMember is a user's membership in a project.
type ProjectMember struct {
	ProjectID uuid.UUID      `json:"project_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Role      clearance.Role `json:"role"`
	JoinedAt  time.Time      `json:"joined_at"`
}

// ProjectOverview is a project as listed on the dashboard.
type ProjectOverview struct {
	Project
	Members      []*ProjectMember `json:"members"`
	TotalScripts int              `json:"total_scripts"`
	TotalRisks   int              `json:"total_risks"`
}

// TimelineEntry summarises one script version for the project timeline.
type TimelineEntry struct {
	ScriptID    uuid.UUID    `json:"script_id"`
	VersionName string       `json:"version_name"`
	Filename    string       `json:"filename"`
	Status      ScriptStatus `json:"status"`
	TotalPages  int          `json:"total_pages"`
	RiskCount   int          `json:"risk_count"`
	HighRisks   int          `json:"high_risks"`
	MediumRisks int          `json:"medium_risks"`
	LowRisks    int          `json:"low_risks"`
	UploadedBy  string       `json:"uploaded_by"`
	UploadedAt  time.Time    `json:"uploaded_at"`
}

// ProjectTimeline is the version history of a project.
type ProjectTimeline struct {
	ProjectID      uuid.UUID        `json:"project_id"`
	ProjectName    string           `json:"project_name"`
	TotalVersions  int              `json:"total_versions"`
	TotalHighRisks int              `json:"total_high_risks"`
	Versions       []*TimelineEntry `json:"versions"`
}

// UnnamedVersion is shown for scripts uploaded without a version name.
const UnnamedVersion = "Unnamed Version"
