package timeoff

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/wallclock"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// Source tags where the HR system says a write came from.
type Source string

const (
	SourceAPI Source = "api"
	SourceUI  Source = "ui"
)

// Type is an absence type configured in the HR system.
type Type struct {
	ID              string
	Name            string
	HalfDaysAllowed bool
}

// Keyword is the lower-cased first word of the type name.
func (t Type) Keyword() string {
	fields := strings.Fields(strings.ToLower(t.Name))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Employee is the subset of the HR employee profile the reconciler needs.
type Employee struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Active    bool
}

// TimeOff is an absence period. Start and End are already normalized to the
// {0, 12, 24} hour markers.
type TimeOff struct {
	ID           string
	EmployeeID   string
	TypeID       string
	TypeName     string
	Start        wallclock.Value
	End          wallclock.Value
	HalfDayStart bool
	HalfDayEnd   bool
	Comment      string
	Status       Status
	UpdatedAt    time.Time
}

// CreateTimeOffRequest is the payload accepted by Client.CreateTimeOff.
type CreateTimeOffRequest struct {
	EmployeeID   string
	TypeID       string
	StartDate    string
	EndDate      string
	HalfDayStart bool
	HalfDayEnd   bool
	Comment      string
	SkipApproval bool
}

// CorrectUpdatedAt undoes the HR provider's clock skew: writes made through
// its web UI report an updated_at exactly one hour late.
func CorrectUpdatedAt(raw time.Time, source Source) time.Time {
	if source == SourceUI {
		return raw.Add(-time.Hour)
	}
	return raw
}
