// Package sourceforge provides read access to SourceForge tracker tickets.
package sourceforge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielolaszy/sfmigrate/pkg/models"
)

const (
	// DefaultBaseURL is the root of the SourceForge REST API.
	DefaultBaseURL = "https://sourceforge.net/rest"
	// DefaultTracker is the tracker migrated when none is configured.
	DefaultTracker = "bugs"

	defaultTimeout        = 30 * time.Second
	defaultPageDelay      = time.Second
	defaultErrorBodyLimit = 4096

	// statusAll disables the status predicate on search requests.
	statusAll = "all"
)

// APIError describes a non-2xx response from SourceForge.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sourceforge: api error status=%d", e.StatusCode)
	}
	return fmt.Sprintf("sourceforge: api error status=%d body=%q", e.StatusCode, e.Body)
}

// Client reads tickets from a single SourceForge tracker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	tracker    string
	pageDelay  time.Duration
	logger     *zap.SugaredLogger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option mutates Client behavior.
type Option func(*Client)

// WithBaseURL points the client at a different REST root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient injects a custom HTTP client instance.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the deadline applied to every request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithPageDelay sets the pause between search pages.
func WithPageDelay(delay time.Duration) Option {
	return func(c *Client) {
		if delay >= 0 {
			c.pageDelay = delay
		}
	}
}

// WithLogger configures the logger used for request diagnostics.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the given project and tracker. An empty
// tracker selects the "bugs" tracker.
func NewClient(project, tracker string, opts ...Option) *Client {
	if tracker == "" {
		tracker = DefaultTracker
	}

	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		project:    project,
		tracker:    tracker,
		pageDelay:  defaultPageDelay,
		logger:     zap.NewNop().Sugar(),
		sleep:      sleepWithContext,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// trackerURL returns the REST endpoint of the configured tracker.
func (c *Client) trackerURL() string {
	return fmt.Sprintf("%s/p/%s/%s", c.baseURL, url.PathEscape(c.project), url.PathEscape(c.tracker))
}

type searchResponse struct {
	Tickets []models.TicketSummary `json:"tickets"`
	Count   int                    `json:"count"`
}

// ListTickets pages through the tracker search endpoint and returns every
// ticket matching status ("all" or "" disables the filter). Pagination ends on
// an empty page or once the server-reported count has been reached. Failures
// are logged and the tickets collected so far are returned.
func (c *Client) ListTickets(ctx context.Context, status string, pageSize int) []models.TicketSummary {
	var tickets []models.TicketSummary

	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("page", strconv.Itoa(page))
		if status != "" && status != statusAll {
			params.Set("q", "status:"+status)
		}

		c.logger.Infow("fetching tickets page", "page", page, "tracker", c.tracker)

		var resp searchResponse
		if err := c.getJSON(ctx, c.trackerURL()+"/search?"+params.Encode(), &resp); err != nil {
			c.logger.Errorw("error fetching tickets", "page", page, "fetched", len(tickets), "error", err)
			break
		}

		if len(resp.Tickets) == 0 {
			break
		}
		tickets = append(tickets, resp.Tickets...)

		if len(tickets) >= resp.Count {
			break
		}

		if err := c.sleep(ctx, c.pageDelay); err != nil {
			c.logger.Warnw("ticket listing interrupted", "fetched", len(tickets), "error", err)
			break
		}
	}

	c.logger.Infow("fetched tickets from sourceforge", "count", len(tickets), "project", c.project, "tracker", c.tracker)
	return tickets
}

// GetTicket fetches the full detail of a single ticket. Failures are returned
// unlogged; callers treat them as missing detail.
func (c *Client) GetTicket(ctx context.Context, number int) (*models.TicketDetail, error) {
	var envelope models.TicketDetailEnvelope
	if err := c.getJSON(ctx, fmt.Sprintf("%s/%d", c.trackerURL(), number), &envelope); err != nil {
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", number, err)
	}
	return &envelope.Ticket, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("sourceforge: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, defaultErrorBodyLimit))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sourceforge: decode response: %w", err)
	}
	return nil
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
