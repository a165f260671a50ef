// Package google talks to the Google Calendar API on behalf of a user who
// granted an access token through the implicit OAuth flow.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/config"
	"calendar-share/internal/models"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// PrimaryCalendar is used when the user has not picked any calendars yet
const PrimaryCalendar = "primary"

// AllDayMinutes is the duration given to events without a time of day
const AllDayMinutes = 24 * 60

// Client builds per-token Calendar API services
type Client struct {
	timeout  time.Duration
	endpoint string
	base     *http.Client
	loc      *time.Location
}

// NewClient creates a Client from the google config section
func NewClient(cfg config.GoogleConfig, loc *time.Location) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		timeout:  cfg.Timeout,
		endpoint: cfg.APIEndpoint,
		base:     &http.Client{Timeout: cfg.Timeout},
		loc:      loc,
	}
}

func (c *Client) service(ctx context.Context, token string) (*calendar.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	httpClient.Timeout = c.timeout

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return svc, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ListCalendars returns every calendar in the account's calendar list,
// following pagination.
func (c *Client) ListCalendars(ctx context.Context, token string) ([]models.Calendar, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	svc, err := c.service(ctx, token)
	if err != nil {
		return nil, remote("list calendars", err)
	}

	calendars := []models.Calendar{}
	err = svc.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			calendars = append(calendars, models.Calendar{
				ID:              item.Id,
				Summary:         item.Summary,
				Description:     item.Description,
				BackgroundColor: item.BackgroundColor,
			})
		}
		return nil
	})
	if err != nil {
		return nil, remote("list calendars", err)
	}
	return calendars, nil
}

// Events lists the events of the connection's selected calendars that start
// inside [from, to). Titles are prefixed with the owner label.
func (c *Client) Events(ctx context.Context, conn *models.CalendarConnection, from, to time.Time, owner string) ([]models.Event, error) {
	if !conn.HasToken() {
		return nil, nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	svc, err := c.service(ctx, conn.AccessToken)
	if err != nil {
		return nil, remote("list events", err)
	}

	ids := conn.SelectedCalendars
	if len(ids) == 0 {
		ids = []string{PrimaryCalendar}
	}

	var events []models.Event
	for _, calID := range ids {
		call := svc.Events.List(calID).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime")

		err := call.Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				e, ok := c.convert(item, owner)
				if !ok || e.Start.Before(from) || !e.Start.Before(to) {
					continue
				}
				events = append(events, e)
			}
			return nil
		})
		if err != nil {
			return nil, remote("list events for "+calID, err)
		}
	}
	return events, nil
}

func (c *Client) convert(item *calendar.Event, owner string) (models.Event, bool) {
	if item.Status == "cancelled" || item.Start == nil {
		return models.Event{}, false
	}

	e := models.Event{
		ID:    item.Id,
		Title: owner + ": " + item.Summary,
		Owner: owner,
	}

	if item.Start.DateTime == "" {
		start, err := time.ParseInLocation(time.DateOnly, item.Start.Date, c.loc)
		if err != nil {
			return models.Event{}, false
		}
		e.Start = start
		e.Duration = AllDayMinutes
		return e, true
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return models.Event{}, false
	}
	e.Start = start.In(c.loc)
	if item.End != nil && item.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil && end.After(start) {
			e.Duration = int(end.Sub(start) / time.Minute)
		}
	}
	return e, true
}

func remote(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &apperr.RemoteError{Op: op, StatusCode: gerr.Code, Err: err}
	}
	return &apperr.RemoteError{Op: op, Err: err}
}
