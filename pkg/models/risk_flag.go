package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scriptsentries/clearance-engine/pkg/clearance"
)

// RiskCategory is the closed set of clearance categories.
type RiskCategory string

const (
	CategoryFactBasedIssues     RiskCategory = "FACT_BASED_ISSUES"
	CategoryGovernment          RiskCategory = "GOVERNMENT"
	CategoryLikeness            RiskCategory = "LIKENESS"
	CategoryLocations           RiskCategory = "LOCATIONS"
	CategoryMarketingAddedValue RiskCategory = "MARKETING_ADDED_VALUE"
	CategoryMusicChoreography   RiskCategory = "MUSIC_CHOREOGRAPHY"
	CategoryNamesNumbers        RiskCategory = "NAMES_NUMBERS"
	CategoryPlayback            RiskCategory = "PLAYBACK"
	CategoryProductMisuse       RiskCategory = "PRODUCT_MISUSE"
	CategoryPropsSetDressing    RiskCategory = "PROPS_SET_DRESSING"
	CategoryReferences          RiskCategory = "REFERENCES"
	CategoryVehicles            RiskCategory = "VEHICLES"
	CategoryWardrobe            RiskCategory = "WARDROBE"
	CategoryOther               RiskCategory = "OTHER"
)

// RiskCategories lists every category.
var RiskCategories = []RiskCategory{
	CategoryFactBasedIssues, CategoryGovernment, CategoryLikeness, CategoryLocations,
	CategoryMarketingAddedValue, CategoryMusicChoreography, CategoryNamesNumbers,
	CategoryPlayback, CategoryProductMisuse, CategoryPropsSetDressing, CategoryReferences,
	CategoryVehicles, CategoryWardrobe, CategoryOther,
}

// Severity is the ordinal risk level. Lower Rank sorts first.
type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Rank orders severities HIGH, MEDIUM, LOW. Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	case SeverityLow:
		return 2
	default:
		return 3
	}
}

// UnknownSubCategory is used when the detector gives no usable sub-category.
const UnknownSubCategory = "UNKNOWN"

// SubCategories is the closed set of sub-categories the detector may use.
var SubCategories = []string{
	"REAL_LIFE_CHARACTER_PORTRAYALS", "REAL_LIFE_INCIDENT_DEPICTIONS", "REAL_LOCALES_ENTITIES_LOGOS",
	"BEHAVIOR_OF_NOTE", "CAMEOS", "CROWD_ATMOSPHERE_EXTRAS", "NAME_AND_LIKENESS_USE",
	"PARODIES_SPOOFS_IMITATIONS", "ADDRESSES_URLS_LICENSE_NUMBERS", "NAMES_BUSINESS_ORGS",
	"NAMES_CHARACTERS", "TELEPHONE_NUMBERS", "ALCOHOL_USE", "ARTWORK", "BRAND_NAME_PRODUCTS",
	"LOGOS_GRAPHICS", "TOBACCO", "TOYS", "GOVERNMENT_AGENCIES_SEALS", "MUSIC", "PLAYBACK",
	"PRODUCT_MISUSE", "REFERENCES", "VEHICLES", "WARDROBE",
}

// MaxSnippetLength bounds the script excerpt stored with a flag.
const MaxSnippetLength = 500

// RiskFlag is one potential clearance issue detected in a script.
type RiskFlag struct {
	ID           uuid.UUID                 `json:"id"`
	ScriptID     uuid.UUID                 `json:"script_id"`
	Category     RiskCategory              `json:"category"`
	SubCategory  string                    `json:"sub_category"`
	Severity     Severity                  `json:"severity"`
	EntityName   string                    `json:"entity_name"`
	Snippet      string                    `json:"snippet,omitempty"`
	Reason       string                    `json:"reason"`
	Suggestion   string                    `json:"suggestion,omitempty"`
	Comments     string                    `json:"comments,omitempty"`
	Restrictions string                    `json:"restrictions,omitempty"`
	PageNumber   int                       `json:"page_number"`
	IsRedacted   bool                      `json:"is_redacted"`
	Status       clearance.ClearanceStatus `json:"status"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// RiskFlagUpdate is a partial update to a risk flag. Nil fields are untouched.
type RiskFlagUpdate struct {
	Status       *string `json:"status,omitempty"`
	Comments     *string `json:"comments,omitempty"`
	Restrictions *string `json:"restrictions,omitempty"`
	IsRedacted   *bool   `json:"isRedacted,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u *RiskFlagUpdate) IsEmpty() bool {
	return u.Status == nil && u.Comments == nil && u.Restrictions == nil && u.IsRedacted == nil
}

// RiskFilter narrows a script's risk list. Empty fields match everything.
type RiskFilter struct {
	Severity Severity
	Status   clearance.ClearanceStatus
	Category RiskCategory
}

// Matches reports whether r passes the filter.
func (f RiskFilter) Matches(r *RiskFlag) bool {
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	return true
}

// normalizeEnum upper-cases s and replaces spaces and hyphens with underscores.
func normalizeEnum(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

// ParseCategory maps detector output to a category, defaulting to OTHER.
func ParseCategory(s string) RiskCategory {
	n := RiskCategory(normalizeEnum(s))
	for _, c := range RiskCategories {
		if c == n {
			return c
		}
	}
	return CategoryOther
}

// ParseSeverity maps detector output to a severity, defaulting to MEDIUM.
func ParseSeverity(s string) Severity {
	switch n := Severity(normalizeEnum(s)); n {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return n
	default:
		return SeverityMedium
	}
}

// ParseDetectedStatus maps detector output to a status, defaulting to PENDING.
func ParseDetectedStatus(s string) clearance.ClearanceStatus {
	st := clearance.ClearanceStatus(normalizeEnum(s))
	if st.Valid() {
		return st
	}
	return clearance.InitialStatus
}

// NormalizeSubCategory maps detector output to a known sub-category,
// defaulting to UNKNOWN.
func NormalizeSubCategory(s string) string {
	n := normalizeEnum(s)
	for _, sc := range SubCategories {
		if sc == n {
			return sc
		}
	}
	return UnknownSubCategory
}

// TruncateSnippet bounds a snippet to MaxSnippetLength runes, the last
// three of which become "..." when it is cut.
func TruncateSnippet(s string) string {
	r := []rune(s)
	if len(r) <= MaxSnippetLength {
		return s
	}
	return string(r[:MaxSnippetLength-3]) + "..."
}
