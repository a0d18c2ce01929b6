// Package google wraps the Google Calendar API surface the sync engine
// relies on: the OAuth refresh-token exchange, watch-channel registration and
// the incremental events feed.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/studyplanhq/calsync-api/pkg/config"
	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

// RemoteEvent is a provider event reduced to the fields the sync controller
// applies locally.
type RemoteEvent struct {
	ID          string
	Status      string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// Cancelled reports whether the remote event was deleted on the provider side.
func (e RemoteEvent) Cancelled() bool {
	return e.Status == "cancelled"
}

// ChangeSet is one fetched batch of remote changes plus the cursor to store
// after the batch is fully processed.
type ChangeSet struct {
	Events        []RemoteEvent
	NextSyncToken string
}

// WatchResult carries the provider-assigned identity of a webhook channel.
type WatchResult struct {
	ResourceID string
	Expiration time.Time
}

// Client talks to the Google Calendar API. Access tokens are fetched fresh
// per operation and never cached, so a token near its expiry boundary is
// never served.
type Client struct {
	cfg   config.GoogleConfig
	oauth *oauth2.Config
}

// NewClient constructs a Client from the configured OAuth application.
func NewClient(cfg config.GoogleConfig) *Client {
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     googleoauth.Endpoint,
			Scopes:       []string{calendar.CalendarEventsScope},
		},
	}
}

// Exchange trades an OAuth consent code for the long-lived refresh token.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	conf := *c.oauth
	if redirectURI != "" {
		conf.RedirectURL = redirectURI
	}

	token, err := conf.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "oauth code exchange failed")
	}
	if token.RefreshToken == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "provider did not issue a refresh token")
	}
	return token.RefreshToken, nil
}

// AccessToken performs a refresh-token grant and returns a short-lived access
// token. A provider rejection is terminal for the connection and surfaces as
// ErrReconnectRequired.
func (c *Client) AccessToken(ctx context.Context, refreshToken string) (string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	source := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", appErrors.Wrap(err, appErrors.ErrReconnectRequired.Code, appErrors.ErrReconnectRequired.Status, appErrors.ErrReconnectRequired.Message)
		}
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return token.AccessToken, nil
}

// Watch registers a push-notification channel on the primary calendar so
// creates, updates and deletes all trigger webhook deliveries.
func (c *Client) Watch(ctx context.Context, accessToken, channelID string) (*WatchResult, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	channel := &calendar.Channel{
		Id:         channelID,
		Type:       "web_hook",
		Address:    c.cfg.WebhookURL,
		Expiration: time.Now().Add(c.cfg.ChannelTTL).UnixMilli(),
	}
	created, err := svc.Events.Watch(c.calendarID(), channel).Context(ctx).Do()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrChannelRegistration.Code, appErrors.ErrChannelRegistration.Status, appErrors.ErrChannelRegistration.Message)
	}

	return &WatchResult{
		ResourceID: created.ResourceId,
		Expiration: time.UnixMilli(created.Expiration).UTC(),
	}, nil
}

// StopChannel tears down a webhook channel. Missing channels are not an
// error; the provider may have expired it already.
func (c *Client) StopChannel(ctx context.Context, accessToken, channelID, resourceID string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}

	err = svc.Channels.Stop(&calendar.Channel{Id: channelID, ResourceId: resourceID}).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("stop channel %s: %w", channelID, err)
	}
	return nil
}

// ListChanges fetches events changed since the given sync token. An HTTP 410
// from the provider means the cursor is stale and maps to ErrCursorInvalid.
func (c *Client) ListChanges(ctx context.Context, accessToken, syncToken string) (*ChangeSet, error) {
	return c.list(ctx, accessToken, func(call *calendar.EventsListCall) *calendar.EventsListCall {
		return call.SyncToken(syncToken)
	})
}

// ListFrom performs a full fetch bounded to events from the given instant
// onward, used when no valid cursor exists. Past events are not resynced.
func (c *Client) ListFrom(ctx context.Context, accessToken string, from time.Time) (*ChangeSet, error) {
	return c.list(ctx, accessToken, func(call *calendar.EventsListCall) *calendar.EventsListCall {
		return call.TimeMin(from.Format(time.RFC3339)).SingleEvents(true)
	})
}

func (c *Client) list(ctx context.Context, accessToken string, configure func(*calendar.EventsListCall) *calendar.EventsListCall) (*ChangeSet, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	set := &ChangeSet{}
	pageToken := ""
	for {
		call := configure(svc.Events.List(c.calendarID()).ShowDeleted(true).Context(ctx))
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) && apiErr.Code == http.StatusGone {
				return nil, appErrors.Wrap(err, appErrors.ErrCursorInvalid.Code, appErrors.ErrCursorInvalid.Status, appErrors.ErrCursorInvalid.Message)
			}
			return nil, fmt.Errorf("list events: %w", err)
		}

		for _, item := range page.Items {
			set.Events = append(set.Events, mapRemoteEvent(item))
		}
		if page.NextPageToken == "" {
			set.NextSyncToken = page.NextSyncToken
			return set, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *Client) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

func (c *Client) calendarID() string {
	if c.cfg.CalendarID == "" {
		return "primary"
	}
	return c.cfg.CalendarID
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func mapRemoteEvent(item *calendar.Event) RemoteEvent {
	ev := RemoteEvent{
		ID:          item.Id,
		Status:      item.Status,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	ev.Start, ev.AllDay = parseEventTime(item.Start)
	ev.End, _ = parseEventTime(item.End)
	return ev
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), false
	}
	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}
