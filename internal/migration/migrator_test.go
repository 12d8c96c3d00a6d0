package migration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/danielolaszy/sfmigrate/internal/logging"
	"github.com/danielolaszy/sfmigrate/pkg/models"
)

// MockSource implements Source for testing
type MockSource struct {
	Tickets       []models.TicketSummary
	GetTicketFunc func(int) (*models.TicketDetail, error)

	listCalls   int
	detailCalls []int
}

func (m *MockSource) ListTickets(_ context.Context, _ string, _ int) []models.TicketSummary {
	m.listCalls++
	return m.Tickets
}

func (m *MockSource) GetTicket(_ context.Context, number int) (*models.TicketDetail, error) {
	m.detailCalls = append(m.detailCalls, number)
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(number)
	}
	return nil, errors.New("GetTicket not implemented")
}

// MockDestination implements Destination for testing
type MockDestination struct {
	CreateIssueFunc func(title, body string, labels []string) (*models.IssueHandle, error)
	AddCommentFunc  func(issueNumber int, body string) error

	created  []string
	comments map[int][]string
	calls    int
}

func (m *MockDestination) CreateIssue(_ context.Context, title, body string, labels []string) (*models.IssueHandle, error) {
	m.calls++
	if m.CreateIssueFunc != nil {
		return m.CreateIssueFunc(title, body, labels)
	}
	m.created = append(m.created, title)
	return &models.IssueHandle{Number: len(m.created)}, nil
}

func (m *MockDestination) AddComment(_ context.Context, issueNumber int, body string) error {
	m.calls++
	if m.AddCommentFunc != nil {
		return m.AddCommentFunc(issueNumber, body)
	}
	if m.comments == nil {
		m.comments = make(map[int][]string)
	}
	m.comments[issueNumber] = append(m.comments[issueNumber], body)
	return nil
}

// recordingPacer records requested delays without sleeping.
type recordingPacer struct {
	waits  []time.Duration
	failAt int
}

func (p *recordingPacer) Wait(ctx context.Context, d time.Duration) error {
	p.waits = append(p.waits, d)
	if p.failAt > 0 && len(p.waits) == p.failAt {
		return context.Canceled
	}
	return ctx.Err()
}

func summaries(n int) []models.TicketSummary {
	tickets := make([]models.TicketSummary, 0, n)
	for i := 1; i <= n; i++ {
		tickets = append(tickets, models.TicketSummary{Number: i, Summary: fmt.Sprintf("ticket %d", i), Status: "open"})
	}
	return tickets
}

func detailWithPosts(texts ...string) *models.TicketDetail {
	detail := &models.TicketDetail{Description: "details"}
	for _, text := range texts {
		detail.DiscussionThread.Posts = append(detail.DiscussionThread.Posts, models.Post{Author: "bob", Text: text})
	}
	return detail
}

func TestRunPreviewWithLimit(t *testing.T) {
	source := &MockSource{
		Tickets: summaries(10),
		GetTicketFunc: func(int) (*models.TicketDetail, error) {
			return detailWithPosts("one", "two"), nil
		},
	}
	destination := &MockDestination{}
	pacer := &recordingPacer{}

	outcome, err := New(source, destination, WithPacer(pacer)).Run(context.Background(), RunOptions{Status: "open", Limit: 3, Preview: true})
	require.NoError(t, err)

	assert.True(t, outcome.Preview)
	assert.NotEmpty(t, outcome.RunID)
	assert.Equal(t, 3, outcome.Attempted)
	assert.Equal(t, 3, outcome.Succeeded)
	assert.Empty(t, outcome.Failed)
	assert.Equal(t, []int{1, 2, 3}, source.detailCalls)
	assert.Zero(t, destination.calls, "preview must not write")
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, pacer.waits, "pause after each detail fetch")
}

func TestRunPreviewWithoutDestination(t *testing.T) {
	source := &MockSource{Tickets: summaries(2)}

	outcome, err := New(source, nil, WithPacer(&recordingPacer{})).Run(context.Background(), RunOptions{Preview: true})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Succeeded)
}

func TestRunRequiresDestinationForWrites(t *testing.T) {
	source := &MockSource{Tickets: summaries(2)}

	outcome, err := New(source, nil).Run(context.Background(), RunOptions{})
	assert.Error(t, err)
	assert.Zero(t, source.listCalls)
	assert.Zero(t, outcome.Attempted)
}

func TestRunWritesIssuesAndComments(t *testing.T) {
	source := &MockSource{
		Tickets: summaries(2),
		GetTicketFunc: func(number int) (*models.TicketDetail, error) {
			if number == 1 {
				return detailWithPosts("first", "", "second"), nil
			}
			return nil, errors.New("detail unavailable")
		},
	}
	destination := &MockDestination{}
	pacer := &recordingPacer{}
	pacing := Pacing{AfterDetail: 10 * time.Millisecond, BetweenComments: 20 * time.Millisecond, AfterIssue: 30 * time.Millisecond}

	outcome, err := New(source, destination, WithPacer(pacer), WithPacing(pacing)).Run(context.Background(), RunOptions{Status: "open"})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Attempted)
	assert.Equal(t, 2, outcome.Succeeded)
	assert.Equal(t, []string{"[SF#1] ticket 1", "[SF#2] ticket 2"}, destination.created)

	require.Len(t, destination.comments[1], 2)
	assert.Contains(t, destination.comments[1][0], "first")
	assert.Contains(t, destination.comments[1][1], "second")
	assert.Empty(t, destination.comments[2])

	assert.Equal(t, []time.Duration{
		10 * time.Millisecond, // detail for ticket 1
		20 * time.Millisecond, // comment 1
		20 * time.Millisecond, // comment 2
		30 * time.Millisecond, // after issue 1
		30 * time.Millisecond, // after issue 2, no detail pause since the fetch failed
	}, pacer.waits)
}

func TestRunContinuesAfterCreateFailure(t *testing.T) {
	source := &MockSource{
		Tickets:       summaries(5),
		GetTicketFunc: func(int) (*models.TicketDetail, error) { return &models.TicketDetail{}, nil },
	}
	var created []string
	destination := &MockDestination{
		CreateIssueFunc: func(title, _ string, _ []string) (*models.IssueHandle, error) {
			if title == "[SF#3] ticket 3" {
				return nil, errors.New("422 Validation Failed")
			}
			created = append(created, title)
			return &models.IssueHandle{Number: len(created)}, nil
		},
	}

	outcome, err := New(source, destination, WithPacer(&recordingPacer{})).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, outcome.Attempted)
	assert.Equal(t, 4, outcome.Succeeded)
	assert.Equal(t, []int{3}, outcome.Failed)
	assert.Equal(t, []string{"[SF#1] ticket 1", "[SF#2] ticket 2", "[SF#4] ticket 4", "[SF#5] ticket 5"}, created)
}

func TestRunCommentFailureDoesNotFailTicket(t *testing.T) {
	source := &MockSource{
		Tickets:       summaries(1),
		GetTicketFunc: func(int) (*models.TicketDetail, error) { return detailWithPosts("a", "b", "c"), nil },
	}
	var attempted []string
	destination := &MockDestination{
		AddCommentFunc: func(_ int, body string) error {
			attempted = append(attempted, body)
			if len(attempted) == 2 {
				return errors.New("boom")
			}
			return nil
		},
	}

	outcome, err := New(source, destination, WithPacer(&recordingPacer{})).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Succeeded)
	assert.Len(t, attempted, 3, "remaining comments are still attempted")
}

func TestRunStopsWhenPauseInterrupted(t *testing.T) {
	source := &MockSource{
		Tickets:       summaries(3),
		GetTicketFunc: func(int) (*models.TicketDetail, error) { return &models.TicketDetail{}, nil },
	}
	destination := &MockDestination{}
	// detail pause, issue pause for ticket 1, then the detail pause of ticket 2 fails.
	pacer := &recordingPacer{failAt: 3}

	outcome, err := New(source, destination, WithPacer(pacer)).Run(context.Background(), RunOptions{})
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 2, outcome.Attempted)
	assert.Equal(t, 1, outcome.Succeeded)
	assert.Empty(t, outcome.Failed)
	assert.Len(t, destination.created, 1)
}

func TestRunPreviewExportsDrafts(t *testing.T) {
	source := &MockSource{Tickets: summaries(2)}
	var buf bytes.Buffer
	exporter := NewYAMLExporter(&buf)

	_, err := New(source, nil, WithPacer(&recordingPacer{}), WithDraftSink(exporter)).Run(context.Background(), RunOptions{Preview: true})
	require.NoError(t, err)
	require.NoError(t, exporter.Close())

	assert.Equal(t, 2, exporter.Count())

	decoder := yaml.NewDecoder(&buf)
	var titles []string
	for {
		var draft models.IssueDraft
		if err := decoder.Decode(&draft); err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
		titles = append(titles, draft.Title)
		assert.Equal(t, MigrationLabel, draft.Labels[0])
	}
	assert.Equal(t, []string{"[SF#1] ticket 1", "[SF#2] ticket 2"}, titles)
}

func TestRunContinuesWithoutDetail(t *testing.T) {
	source := &MockSource{
		Tickets: summaries(2),
		GetTicketFunc: func(int) (*models.TicketDetail, error) {
			return nil, errors.New("sourceforge: api error status=404")
		},
	}
	destination := &MockDestination{}
	pacer := &recordingPacer{}

	var buf bytes.Buffer
	logger := logging.New(&buf, logging.LevelDebug, logging.FormatConsole)

	outcome, err := New(source, destination, WithPacer(pacer), WithLogger(logger)).Run(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Succeeded)
	assert.Equal(t, []string{"[SF#1] ticket 1", "[SF#2] ticket 2"}, destination.created)
	assert.Equal(t, 2, strings.Count(buf.String(), "continuing without ticket detail"))
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, pacer.waits, "no pause after a failed detail fetch")
}
