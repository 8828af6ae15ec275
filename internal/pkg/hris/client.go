// Package hris is the HTTP client for the HR system's time-off API.
package hris

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/cmlabs-hris/timeoff-sync/internal/config"
	"github.com/cmlabs-hris/timeoff-sync/internal/domain/timeoff"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/apiclient"
)

const defaultPageSize = 200

type Client struct {
	api      *apiclient.Client
	pageSize int
	offset   time.Duration
}

var _ timeoff.Client = (*Client)(nil)

// New authenticates with the OAuth2 client-credentials grant. offset is the
// UTC offset the HR system's plain dates are read in.
func New(ctx context.Context, cfg config.HRConfig, offset time.Duration) *Client {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return NewWithHTTPClient(cc.Client(ctx), cfg.BaseURL, cfg.PageSize, offset)
}

func NewWithHTTPClient(httpClient *http.Client, baseURL string, pageSize int, offset time.Duration) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{api: apiclient.New(httpClient, baseURL), pageSize: pageSize, offset: offset}
}

type page[T any] struct {
	Data []T `json:"data"`
}

type absenceTypeDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	HalfDaysAllowed bool   `json:"half_days_allowed"`
}

type employeeDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status"`
}

type timeOffDTO struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employee_id"`
	Type       struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"time_off_type"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	HalfDayStart bool           `json:"half_day_start"`
	HalfDayEnd   bool           `json:"half_day_end"`
	Comment      string         `json:"comment"`
	Status       timeoff.Status `json:"status"`
	Source       timeoff.Source `json:"source"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type createTimeOffDTO struct {
	EmployeeID    string `json:"employee_id"`
	TimeOffTypeID string `json:"time_off_type_id"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	HalfDayStart  bool   `json:"half_day_start"`
	HalfDayEnd    bool   `json:"half_day_end"`
	Comment       string `json:"comment,omitempty"`
	SkipApproval  bool   `json:"skip_approval,omitempty"`
}

func (c *Client) ListAbsenceTypes(ctx context.Context) ([]timeoff.Type, error) {
	rows, err := listAll[absenceTypeDTO](ctx, c, "/time-off-types", nil)
	if err != nil {
		return nil, fmt.Errorf("list absence types: %w", err)
	}
	types := make([]timeoff.Type, 0, len(rows))
	for _, r := range rows {
		types = append(types, timeoff.Type{ID: r.ID, Name: r.Name, HalfDaysAllowed: r.HalfDaysAllowed})
	}
	return types, nil
}

func (c *Client) ListEmployees(ctx context.Context) ([]timeoff.Employee, error) {
	rows, err := listAll[employeeDTO](ctx, c, "/employees", nil)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	employees := make([]timeoff.Employee, 0, len(rows))
	for _, r := range rows {
		employees = append(employees, timeoff.Employee{
			ID:        r.ID,
			Email:     strings.TrimSpace(r.Email),
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Active:    strings.EqualFold(r.Status, "active"),
		})
	}
	return employees, nil
}

// ListTimeOffs skips records whose dates cannot be read and logs them. One
// malformed record must not hide the rest.
func (c *Client) ListTimeOffs(ctx context.Context, start, end time.Time, employeeID string) ([]timeoff.TimeOff, error) {
	query := url.Values{
		"start_date": {start.Format(time.DateOnly)},
		"end_date":   {end.Format(time.DateOnly)},
	}
	if employeeID != "" {
		query.Set("employee_id", employeeID)
	}

	rows, err := listAll[timeOffDTO](ctx, c, "/time-offs", query)
	if err != nil {
		return nil, fmt.Errorf("list time-offs: %w", err)
	}
	out := make([]timeoff.TimeOff, 0, len(rows))
	for _, r := range rows {
		to, err := c.toTimeOff(r)
		if err != nil {
			slog.Warn("HR: skipping unreadable time-off", "time_off_id", r.ID, "employee_id", r.EmployeeID, "error", err)
			continue
		}
		out = append(out, to)
	}
	return out, nil
}

func (c *Client) CreateTimeOff(ctx context.Context, req timeoff.CreateTimeOffRequest) (timeoff.TimeOff, error) {
	if req.TypeID == "" {
		return timeoff.TimeOff{}, timeoff.ErrTypeNotFound
	}
	body := createTimeOffDTO{
		EmployeeID:    req.EmployeeID,
		TimeOffTypeID: req.TypeID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		HalfDayStart:  req.HalfDayStart,
		HalfDayEnd:    req.HalfDayEnd,
		Comment:       req.Comment,
		SkipApproval:  req.SkipApproval,
	}

	var resp struct {
		Data timeOffDTO `json:"data"`
	}
	if err := c.api.Do(ctx, http.MethodPost, "/time-offs", nil, body, &resp); err != nil {
		return timeoff.TimeOff{}, classify(err)
	}
	return c.toTimeOff(resp.Data)
}

func (c *Client) DeleteTimeOff(ctx context.Context, id string) error {
	if err := c.api.Do(ctx, http.MethodDelete, "/time-offs/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Client) toTimeOff(r timeOffDTO) (timeoff.TimeOff, error) {
	start, end, err := timeoff.RangeFromDates(r.StartDate, r.EndDate, r.HalfDayStart, r.HalfDayEnd, c.offset)
	if err != nil {
		return timeoff.TimeOff{}, fmt.Errorf("time-off %s: %w", r.ID, err)
	}
	return timeoff.TimeOff{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		TypeID:       r.Type.ID,
		TypeName:     r.Type.Name,
		Start:        start,
		End:          end,
		HalfDayStart: r.HalfDayStart,
		HalfDayEnd:   r.HalfDayEnd,
		Comment:      r.Comment,
		Status:       r.Status,
		UpdatedAt:    timeoff.CorrectUpdatedAt(r.UpdatedAt, r.Source),
	}, nil
}

// listAll walks limit/offset pages until a short page comes back.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("limit", strconv.Itoa(c.pageSize))

	var all []T
	for offset := 0; ; offset += c.pageSize {
		q.Set("offset", strconv.Itoa(offset))
		var p page[T]
		if err := c.api.Do(ctx, http.MethodGet, path, q, nil, &p); err != nil {
			return nil, err
		}
		all = append(all, p.Data...)
		if len(p.Data) < c.pageSize {
			return all, nil
		}
	}
}

// classify marks payload rejections so callers can tell them from
// transport failures.
func classify(err error) error {
	switch apiclient.StatusCode(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %w", timeoff.ErrValidation, err)
	}
	return err
}
