// Package googlecalendar talks to the Google Calendar v3 REST API on behalf
// of individual employees.
package googlecalendar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/domain/calendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/apiclient"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/oauth"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"
	pageSize       = 250
)

// Factory builds per-employee clients from a delegating service account.
type Factory struct {
	auth    oauth.GoogleService
	baseURL string
}

var _ calendar.ClientFactory = (*Factory)(nil)

func NewFactory(auth oauth.GoogleService, baseURL string) *Factory {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Factory{auth: auth, baseURL: baseURL}
}

func (f *Factory) ForEmployee(ctx context.Context, email string) (calendar.Client, error) {
	httpClient, err := f.auth.HTTPClient(ctx, email)
	if err != nil {
		return nil, err
	}
	return NewClient(httpClient, f.baseURL), nil
}

type Client struct {
	api *apiclient.Client
}

var _ calendar.Client = (*Client)(nil)

func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{api: apiclient.New(httpClient, baseURL)}
}

type eventTimeDTO struct {
	Date     *string    `json:"date"`
	DateTime *time.Time `json:"dateTime"`
}

type personDTO struct {
	Email string `json:"email"`
}

type sourceDTO struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

type extendedPropertiesDTO struct {
	Private map[string]string `json:"private,omitempty"`
}

type eventDTO struct {
	ID                 string                 `json:"id,omitempty"`
	Status             string                 `json:"status,omitempty"`
	EventType          string                 `json:"eventType,omitempty"`
	Summary            string                 `json:"summary"`
	Description        string                 `json:"description"`
	Start              *eventTimeDTO          `json:"start,omitempty"`
	End                *eventTimeDTO          `json:"end,omitempty"`
	Organizer          *personDTO             `json:"organizer,omitempty"`
	Source             *sourceDTO             `json:"source,omitempty"`
	Updated            *time.Time             `json:"updated,omitempty"`
	ExtendedProperties *extendedPropertiesDTO `json:"extendedProperties,omitempty"`
}

type eventListDTO struct {
	Items         []eventDTO `json:"items"`
	NextPageToken string     `json:"nextPageToken"`
}

// ListEvents expands recurring events and includes cancelled ones.
func (c *Client) ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]calendar.Event, error) {
	query := url.Values{
		"timeMin":      {start.UTC().Format(time.RFC3339)},
		"timeMax":      {end.UTC().Format(time.RFC3339)},
		"showDeleted":  {"true"},
		"singleEvents": {"true"},
		"maxResults":   {strconv.Itoa(pageSize)},
	}

	var events []calendar.Event
	for {
		var page eventListDTO
		if err := c.api.Do(ctx, http.MethodGet, eventsPath(calendarID), query, nil, &page); err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		for _, item := range page.Items {
			events = append(events, fromDTO(item))
		}
		if page.NextPageToken == "" {
			return events, nil
		}
		query.Set("pageToken", page.NextPageToken)
	}
}

func (c *Client) InsertEvent(ctx context.Context, calendarID string, event calendar.Event) (calendar.Event, error) {
	body := toDTO(event)
	body.ID = ""
	var created eventDTO
	if err := c.api.Do(ctx, http.MethodPost, eventsPath(calendarID), nil, body, &created); err != nil {
		return calendar.Event{}, fmt.Errorf("insert event: %w", err)
	}
	return fromDTO(created), nil
}

// UpdateEvent patches the fields the reconciler owns. A cancelled status is
// applied as a delete, which Google reports back as a cancelled event.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, event calendar.Event) (calendar.Event, error) {
	path := eventsPath(calendarID) + "/" + url.PathEscape(eventID)

	if event.IsCancelled() {
		err := c.api.Do(ctx, http.MethodDelete, path, url.Values{"sendUpdates": {"none"}}, nil, nil)
		if err != nil && apiclient.StatusCode(err) != http.StatusGone {
			return calendar.Event{}, fmt.Errorf("cancel event %s: %w", eventID, err)
		}
		event.ID = eventID
		return event, nil
	}

	body := toDTO(event)
	body.ID = ""
	var updated eventDTO
	if err := c.api.Do(ctx, http.MethodPatch, path, nil, body, &updated); err != nil {
		return calendar.Event{}, fmt.Errorf("update event %s: %w", eventID, err)
	}
	return fromDTO(updated), nil
}

func eventsPath(calendarID string) string {
	return "/calendars/" + url.PathEscape(calendarID) + "/events"
}

func fromDTO(d eventDTO) calendar.Event {
	ev := calendar.Event{
		ID:          d.ID,
		Status:      calendar.EventStatus(d.Status),
		EventType:   calendar.EventType(d.EventType),
		Summary:     d.Summary,
		Description: d.Description,
		Start:       fromTimeDTO(d.Start),
		End:         fromTimeDTO(d.End),
	}
	if ev.EventType == "" {
		ev.EventType = calendar.EventTypeDefault
	}
	if d.Organizer != nil {
		ev.OrganizerEmail = d.Organizer.Email
	}
	if d.Source != nil {
		ev.SourceURL = d.Source.URL
	}
	if d.Updated != nil {
		ev.UpdatedAt = *d.Updated
	}
	if d.ExtendedProperties != nil {
		ev.TimeOffID = d.ExtendedProperties.Private[calendar.PropertyTimeOffID]
		ev.SyncFailCount, _ = strconv.Atoi(d.ExtendedProperties.Private[calendar.PropertySyncFailCount])
	}
	return ev
}

func fromTimeDTO(d *eventTimeDTO) calendar.EventTime {
	var t calendar.EventTime
	if d == nil {
		return t
	}
	if d.Date != nil {
		t.Date = *d.Date
	}
	if d.DateTime != nil {
		t.DateTime = *d.DateTime
	}
	return t
}

// toDTO always sends the link property so an empty TimeOffID unlinks the
// event on patch.
func toDTO(ev calendar.Event) eventDTO {
	private := map[string]string{calendar.PropertyTimeOffID: ev.TimeOffID}
	if ev.SyncFailCount > 0 {
		private[calendar.PropertySyncFailCount] = strconv.Itoa(ev.SyncFailCount)
	}
	d := eventDTO{
		ID:                 ev.ID,
		Status:             string(ev.Status),
		EventType:          string(ev.EventType),
		Summary:            ev.Summary,
		Description:        ev.Description,
		ExtendedProperties: &extendedPropertiesDTO{Private: private},
	}
	if !ev.Start.IsZero() {
		d.Start = toTimeDTO(ev.Start)
	}
	if !ev.End.IsZero() {
		d.End = toTimeDTO(ev.End)
	}
	return d
}

// toTimeDTO sets the unused field to null so a patch can switch an event
// between all-day and timed.
func toTimeDTO(t calendar.EventTime) *eventTimeDTO {
	if t.Date != "" {
		date := t.Date
		return &eventTimeDTO{Date: &date}
	}
	dt := t.DateTime
	return &eventTimeDTO{DateTime: &dt}
}
