package timeoff

import (
	"context"
	"time"
)

// Client is the HR system boundary. Listing methods page internally.
type Client interface {
	ListAbsenceTypes(ctx context.Context) ([]Type, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	// ListTimeOffs returns every time-off overlapping [start, end]. An empty
	// employeeID lists all employees.
	ListTimeOffs(ctx context.Context, start, end time.Time, employeeID string) ([]TimeOff, error)
	// CreateTimeOff fails with ErrValidation when the range overlaps an
	// existing record.
	CreateTimeOff(ctx context.Context, req CreateTimeOffRequest) (TimeOff, error)
	DeleteTimeOff(ctx context.Context, id string) error
}
