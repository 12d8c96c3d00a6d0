// Package migration turns SourceForge tickets into GitHub issues.
package migration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielolaszy/sfmigrate/pkg/models"
)

// DefaultPageSize is the number of tickets requested per search page.
const DefaultPageSize = 100

// Source lists tickets and fetches their detail.
type Source interface {
	ListTickets(ctx context.Context, status string, pageSize int) []models.TicketSummary
	GetTicket(ctx context.Context, number int) (*models.TicketDetail, error)
}

// Destination creates issues and comments.
type Destination interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (*models.IssueHandle, error)
	AddComment(ctx context.Context, issueNumber int, body string) error
}

// DraftSink receives every draft produced in preview mode.
type DraftSink interface {
	WriteDraft(draft models.IssueDraft) error
}

// RunOptions parameterizes a single pass.
type RunOptions struct {
	// Status filters tickets: "open", "closed" or "all".
	Status string
	// Limit truncates the listing to its first Limit tickets when positive.
	Limit int
	// Preview performs every read and transform but no writes.
	Preview bool
}

// Migrator drives a sequential migration pass.
type Migrator struct {
	source      Source
	destination Destination
	pacer       Pacer
	pacing      Pacing
	sourceHost  string
	pageSize    int
	drafts      DraftSink
	logger      *zap.SugaredLogger
}

// Option mutates Migrator behavior.
type Option func(*Migrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(m *Migrator) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPacer replaces the pacer used for inter-call delays.
func WithPacer(pacer Pacer) Option {
	return func(m *Migrator) {
		if pacer != nil {
			m.pacer = pacer
		}
	}
}

// WithPacing sets the inter-call delays.
func WithPacing(pacing Pacing) Option {
	return func(m *Migrator) {
		m.pacing = pacing
	}
}

// WithSourceHost sets the host used to absolutize attachment URLs.
func WithSourceHost(host string) Option {
	return func(m *Migrator) {
		m.sourceHost = host
	}
}

// WithPageSize sets the search page size.
func WithPageSize(size int) Option {
	return func(m *Migrator) {
		if size > 0 {
			m.pageSize = size
		}
	}
}

// WithDraftSink receives drafts in preview mode.
func WithDraftSink(sink DraftSink) Option {
	return func(m *Migrator) {
		m.drafts = sink
	}
}

// New creates a Migrator. destination may be nil when only preview runs are performed.
func New(source Source, destination Destination, opts ...Option) *Migrator {
	m := &Migrator{
		source:      source,
		destination: destination,
		pacer:       SleepPacer{},
		pacing:      DefaultPacing(),
		sourceHost:  DefaultSourceHost,
		pageSize:    DefaultPageSize,
		logger:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Run performs one forward pass. A failure on one ticket never stops the
// pass; only context cancellation ends it early, in which case the outcome
// covers the tickets handled so far and the context error is returned.
func (m *Migrator) Run(ctx context.Context, opts RunOptions) (models.Outcome, error) {
	outcome := models.Outcome{
		RunID:   uuid.NewString(),
		Preview: opts.Preview,
	}
	if !opts.Preview && m.destination == nil {
		return outcome, errors.New("migration: destination is required unless previewing")
	}

	log := m.logger.With("run_id", outcome.RunID)
	log.Infow("starting migration", "status", opts.Status, "limit", opts.Limit, "dry_run", opts.Preview)

	tickets := m.source.ListTickets(ctx, opts.Status, m.pageSize)
	if opts.Limit > 0 && len(tickets) > opts.Limit {
		tickets = tickets[:opts.Limit]
	}
	log.Infow("migrating tickets", "count", len(tickets))

	for i, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return m.finish(log, outcome, err)
		}

		outcome.Attempted++
		log.Infow("processing ticket", "position", fmt.Sprintf("%d/%d", i+1, len(tickets)), "ticket", ticket.Number)

		ok, err := m.migrateTicket(ctx, log, ticket, opts.Preview)
		switch {
		case ok:
			outcome.Succeeded++
		case err == nil:
			outcome.Failed = append(outcome.Failed, ticket.Number)
		}
		if err != nil {
			return m.finish(log, outcome, err)
		}
	}

	return m.finish(log, outcome, nil)
}

// migrateTicket handles one ticket. It reports whether the ticket counts as
// migrated and returns an error only when a pause was interrupted.
func (m *Migrator) migrateTicket(ctx context.Context, log *zap.SugaredLogger, ticket models.TicketSummary, preview bool) (bool, error) {
	log.Debugw("fetching detailed information", "ticket", ticket.Number)
	detail, err := m.source.GetTicket(ctx, ticket.Number)
	if err != nil {
		log.Warnw("continuing without ticket detail", "ticket", ticket.Number, "error", err)
		detail = nil
	} else if detail != nil {
		if err := m.pacer.Wait(ctx, m.pacing.AfterDetail); err != nil {
			return false, err
		}
	}

	draft := Transform(ticket, detail, m.sourceHost)

	if preview {
		log.Infow("[DRY RUN] would create issue", "title", draft.Title, "labels", draft.Labels)
		if len(draft.Comments) > 0 {
			log.Infow("[DRY RUN] would add comments", "count", len(draft.Comments))
		}
		if m.drafts != nil {
			if err := m.drafts.WriteDraft(draft); err != nil {
				log.Errorw("failed to export draft", "ticket", ticket.Number, "error", err)
			}
		}
		return true, nil
	}

	issue, err := m.destination.CreateIssue(ctx, draft.Title, draft.Body, draft.Labels)
	if err != nil || issue == nil {
		log.Errorw("failed to create issue for ticket", "ticket", ticket.Number, "error", err)
		return false, ctx.Err()
	}

	if len(draft.Comments) > 0 {
		log.Infow("adding comments", "count", len(draft.Comments), "issue_number", issue.Number)
	}
	for i, comment := range draft.Comments {
		if err := m.destination.AddComment(ctx, issue.Number, comment); err != nil {
			log.Errorw("failed to add comment", "issue_number", issue.Number, "comment", i+1, "error", err)
		}
		if err := m.pacer.Wait(ctx, m.pacing.BetweenComments); err != nil {
			return true, err
		}
	}

	log.Infow("migrated ticket", "ticket", ticket.Number, "issue_number", issue.Number, "url", issue.URL)
	return true, m.pacer.Wait(ctx, m.pacing.AfterIssue)
}

func (m *Migrator) finish(log *zap.SugaredLogger, outcome models.Outcome, err error) (models.Outcome, error) {
	if err != nil {
		log.Warnw("migration interrupted", "error", err)
	}
	log.Infow("migration complete",
		"migrated", fmt.Sprintf("%d/%d", outcome.Succeeded, outcome.Attempted),
		"failed_tickets", outcome.Failed)
	return outcome, err
}
