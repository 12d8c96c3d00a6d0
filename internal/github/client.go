// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/sfmigrate/internal/config"
	"github.com/danielolaszy/sfmigrate/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Client creates issues and comments in a single GitHub repository.
type Client struct {
	client  *github.Client
	owner   string
	repo    string
	timeout time.Duration
	logger  *zap.SugaredLogger
}

// Option mutates Client behavior.
type Option func(*Client) error

// WithTimeout sets the deadline applied to every API call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout > 0 {
			c.timeout = timeout
		}
		return nil
	}
}

// WithLogger configures the logger used for API diagnostics.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithBaseURL overrides the API endpoint derived from the configured domain.
func WithBaseURL(rawURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(rawURL, "/") {
			rawURL += "/"
		}
		parsedURL, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid github api url: %w", err)
		}
		c.client.BaseURL = parsedURL
		c.client.UploadURL = parsedURL
		return nil
	}
}

// apiURLForDomain returns the REST endpoint for github.com or a GitHub
// Enterprise domain. An empty domain means github.com.
func apiURLForDomain(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client for the configured repository,
// authenticated with the configured token.
func NewClient(ctx context.Context, cfg config.GitHubConfig, opts ...Option) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("invalid repository format: %s, expected format: owner/repo", cfg.Repository())
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.Token},
	)
	tc := oauth2.NewClient(ctx, ts)

	c := &Client{
		client:  github.NewClient(tc),
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		timeout: defaultTimeout,
		logger:  zap.NewNop().Sugar(),
	}

	apiURL := cfg.APIURL
	if apiURL == "" && cfg.Domain != "" && cfg.Domain != "github.com" {
		apiURL = apiURLForDomain(cfg.Domain)
	}
	if apiURL != "" {
		if err := WithBaseURL(apiURL)(c); err != nil {
			return nil, err
		}
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.logger.Infow("github configuration",
		"repository", cfg.Repository(),
		"api_url", c.client.BaseURL.String(),
		"token_length", len(cfg.Token))

	return c, nil
}

// Verify checks that the token is accepted by calling the authenticated user endpoint.
func (c *Client) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		c.logger.Errorw("failed to test github token", "error", err)
		return fmt.Errorf("error testing github token: %w", err)
	}

	c.logger.Infow("github authentication successful", "username", user.GetLogin())
	return nil
}

// CreateIssue creates an issue with the given title, body and labels. GitHub
// creates missing labels automatically. No retries are attempted; failures are
// logged together with the API's error payload and returned.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*models.IssueHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &github.IssueRequest{
		Title: github.String(title),
		Body:  github.String(body),
	}
	if len(labels) > 0 {
		req.Labels = &labels
	}

	issue, _, err := c.client.Issues.Create(ctx, c.owner, c.repo, req)
	if err != nil {
		c.logError("error creating issue", err, "title", title)
		return nil, fmt.Errorf("failed to create issue in %s/%s: %w", c.owner, c.repo, err)
	}

	handle := &models.IssueHandle{
		Number: issue.GetNumber(),
		URL:    issue.GetHTMLURL(),
	}
	c.logger.Infow("created issue", "issue_number", handle.Number, "title", title)
	return handle, nil
}

// AddComment appends a comment to an issue.
func (c *Client) AddComment(ctx context.Context, issueNumber int, body string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	comment := &github.IssueComment{
		Body: github.String(body),
	}
	if _, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, issueNumber, comment); err != nil {
		c.logError("error adding comment", err, "issue_number", issueNumber)
		return fmt.Errorf("failed to add comment to issue %s#%d: %w", c.repo, issueNumber, err)
	}

	c.logger.Infow("added comment", "issue_number", issueNumber)
	return nil
}

// logError logs err, expanding the GitHub error response when there is one.
func (c *Client) logError(msg string, err error, keysAndValues ...any) {
	fields := append([]any{"error", err}, keysAndValues...)

	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) {
		if errResp.Response != nil {
			fields = append(fields, "status_code", errResp.Response.StatusCode)
		}
		fields = append(fields, "response", errResp.Message)
		for i, detail := range errResp.Errors {
			fields = append(fields, fmt.Sprintf("detail_%d", i), fmt.Sprintf("%s.%s: %s %s", detail.Resource, detail.Field, detail.Code, detail.Message))
		}
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		fields = append(fields, "rate_reset", rateErr.Rate.Reset.Time)
	}

	c.logger.Errorw(msg, fields...)
}
