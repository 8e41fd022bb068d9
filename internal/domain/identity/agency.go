package identity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agencydesk/backend/internal/domain/shared"
)

// AgencyStatus represents the lifecycle state of an agency account
type AgencyStatus string

const (
	AgencyStatusActive    AgencyStatus = "ACTIVE"
	AgencyStatusSuspended AgencyStatus = "SUSPENDED"
	AgencyStatusInactive  AgencyStatus = "INACTIVE"
)

// IsValid checks if the agency status is valid
func (s AgencyStatus) IsValid() bool {
	switch s {
	case AgencyStatusActive, AgencyStatusSuspended, AgencyStatusInactive:
		return true
	}
	return false
}

// Automation settings defaults applied when a field is absent.
const (
	DefaultTimezone        = "UTC"
	DefaultDailyCutoff     = "17:00"
	DefaultDueSoonLeadDays = 4

	MinDueSoonLeadDays = 0
	MaxDueSoonLeadDays = 30
)

// AutomationSettings holds the per-agency knobs the installment pipeline
// reads: the IANA time zone all due dates are interpreted in, the local
// cutoff time after which a due date counts as missed, and the lead window
// shown on agency dashboards for upcoming installments.
type AutomationSettings struct {
	Timezone        string `json:"timezone"`
	DailyCutoff     string `json:"daily_cutoff"`
	DueSoonLeadDays int    `json:"due_soon_lead_days"`
}

// DefaultAutomationSettings returns the settings applied to new agencies
func DefaultAutomationSettings() AutomationSettings {
	return AutomationSettings{
		Timezone:        DefaultTimezone,
		DailyCutoff:     DefaultDailyCutoff,
		DueSoonLeadDays: DefaultDueSoonLeadDays,
	}
}

// Normalized returns a copy with every absent or unusable field replaced by
// its default. Unknown time zones fall back to UTC rather than failing the
// pipeline run.
func (s AutomationSettings) Normalized() AutomationSettings {
	out := s
	if out.Timezone == "" {
		out.Timezone = DefaultTimezone
	} else if _, err := time.LoadLocation(out.Timezone); err != nil {
		out.Timezone = DefaultTimezone
	}
	if out.DailyCutoff == "" {
		out.DailyCutoff = DefaultDailyCutoff
	} else if _, _, err := ParseCutoff(out.DailyCutoff); err != nil {
		out.DailyCutoff = DefaultDailyCutoff
	}
	if out.DueSoonLeadDays < MinDueSoonLeadDays || out.DueSoonLeadDays > MaxDueSoonLeadDays {
		out.DueSoonLeadDays = DefaultDueSoonLeadDays
	}
	return out
}

// Validate checks the settings as submitted by an operator. Unlike
// Normalized it rejects instead of repairing.
func (s AutomationSettings) Validate() error {
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return shared.NewDomainError("INVALID_TIMEZONE", fmt.Sprintf("Unknown time zone %q", s.Timezone))
		}
	}
	if s.DailyCutoff != "" {
		if _, _, err := ParseCutoff(s.DailyCutoff); err != nil {
			return shared.NewDomainError("INVALID_CUTOFF", "Daily cutoff must be in 24-hour HH:MM format")
		}
	}
	if s.DueSoonLeadDays < MinDueSoonLeadDays || s.DueSoonLeadDays > MaxDueSoonLeadDays {
		return shared.NewDomainError("INVALID_LEAD_DAYS", fmt.Sprintf("Due-soon lead days must be between %d and %d", MinDueSoonLeadDays, MaxDueSoonLeadDays))
	}
	return nil
}

// ParseCutoff parses a 24-hour "HH:MM" cutoff into hour and minute.
func ParseCutoff(cutoff string) (hour, minute int, err error) {
	parts := strings.Split(cutoff, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cutoff format: %s (expected HH:MM)", cutoff)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid cutoff hour: %s", parts[0])
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid cutoff minute: %s", parts[1])
	}
	return hour, minute, nil
}

// Agency is an education-placement agency: the tenant boundary of the
// system. Every installment, plan, notification and audit row belongs to
// exactly one agency.
type Agency struct {
	shared.BaseAggregateRoot
	Code         string
	Name         string
	Status       AgencyStatus
	ContactEmail string
	Settings     AutomationSettings
}

// NewAgency creates an active agency with default automation settings
func NewAgency(code, name, contactEmail string) (*Agency, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewDomainError("INVALID_AGENCY_CODE", "Agency code cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_AGENCY_NAME", "Agency name cannot be empty")
	}
	return &Agency{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToLower(strings.TrimSpace(code)),
		Name:              strings.TrimSpace(name),
		Status:            AgencyStatusActive,
		ContactEmail:      strings.TrimSpace(contactEmail),
		Settings:          DefaultAutomationSettings(),
	}, nil
}

// IsActive reports whether the agency participates in automation runs
func (a *Agency) IsActive() bool {
	return a.Status == AgencyStatusActive
}

// Suspend takes the agency out of automation runs
func (a *Agency) Suspend() error {
	if a.Status == AgencyStatusInactive {
		return shared.ErrInvalidState
	}
	a.Status = AgencyStatusSuspended
	a.UpdatedAt = time.Now()
	return nil
}

// Activate returns a suspended agency to active
func (a *Agency) Activate() error {
	if a.Status == AgencyStatusInactive {
		return shared.ErrInvalidState
	}
	a.Status = AgencyStatusActive
	a.UpdatedAt = time.Now()
	return nil
}

// UpdateSettings replaces the automation settings after validation
func (a *Agency) UpdateSettings(settings AutomationSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	a.Settings = settings.Normalized()
	a.UpdatedAt = time.Now()
	return nil
}
