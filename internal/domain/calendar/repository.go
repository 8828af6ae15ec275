package calendar

import (
	"context"
	"time"
)

// Client talks to one calendar account. Listing pages internally and
// includes cancelled events.
type Client interface {
	ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, calendarID string, event Event) (Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, event Event) (Event, error)
}

// ClientFactory hands out a Client acting on behalf of one employee.
type ClientFactory interface {
	ForEmployee(ctx context.Context, email string) (Client, error)
}
