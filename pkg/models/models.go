// Package models defines data structures shared across the application.
package models

import (
	"path"
	"strings"
)

// TicketSummary represents a SourceForge ticket as returned by the tracker search endpoint.
type TicketSummary struct {
	// Number is the ticket number within the tracker (e.g., 42)
	Number int `json:"ticket_num"`

	// Summary is the ticket's short title
	Summary string `json:"summary"`

	// Status is the tracker status (e.g., "open", "closed-fixed")
	Status string `json:"status"`

	// CreatedDate is the creation timestamp, kept as the tracker renders it
	CreatedDate string `json:"created_date"`

	// ModDate is the last-modified timestamp, kept as the tracker renders it
	ModDate string `json:"mod_date"`

	// ReportedBy is the username of the reporter
	ReportedBy string `json:"reported_by"`

	// Description is the optional short description included in search results
	Description string `json:"description"`
}

// TicketDetail holds the full ticket payload fetched per ticket.
type TicketDetail struct {
	// Description is the full body text of the ticket
	Description string `json:"description"`

	// Labels is the ordered list of tracker labels
	Labels []string `json:"labels"`

	// Attachments lists the files attached to the ticket
	Attachments []Attachment `json:"attachments"`

	// DiscussionThread holds the ticket's comments
	DiscussionThread DiscussionThread `json:"discussion_thread"`
}

// TicketDetailEnvelope is the wire shape of the ticket detail endpoint.
type TicketDetailEnvelope struct {
	Ticket TicketDetail `json:"ticket"`
}

// DiscussionThread is an ordered sequence of posts.
type DiscussionThread struct {
	Posts []Post `json:"posts"`
}

// Post is a single discussion entry on a ticket.
type Post struct {
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Attachment is a file attached to a ticket. SourceForge only exposes a URL,
// so the filename has to be derived from it.
type Attachment struct {
	URL string `json:"url"`
}

// imageExtensions lists the suffixes embedded inline rather than linked.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp"}

// Filename returns the last path segment of the attachment URL with any query
// string removed, or "attachment" when no name can be derived. The segment is
// kept verbatim: escapes stay encoded and '#' is part of the name.
func (a Attachment) Filename() string {
	raw, _, _ := strings.Cut(a.URL, "?")
	if _, rest, ok := strings.Cut(raw, "://"); ok {
		if i := strings.Index(rest, "/"); i >= 0 {
			raw = rest[i:]
		} else {
			raw = rest
		}
	}

	name := path.Base(strings.TrimRight(raw, "/"))
	if name == "" || name == "." || name == "/" {
		return "attachment"
	}
	return name
}

// ResolveURL returns the attachment URL in absolute form. Absolute http(s)
// URLs are returned untouched, anything else is prefixed with host.
func (a Attachment) ResolveURL(host string) string {
	if strings.HasPrefix(a.URL, "http://") || strings.HasPrefix(a.URL, "https://") {
		return a.URL
	}
	host = strings.TrimRight(host, "/")
	if strings.HasPrefix(a.URL, "/") {
		return host + a.URL
	}
	return host + "/" + a.URL
}

// IsImage reports whether the derived filename carries an image extension.
func (a Attachment) IsImage() bool {
	name := strings.ToLower(a.Filename())
	for _, ext := range imageExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// IssueDraft is a ticket transformed into a GitHub-ready issue.
type IssueDraft struct {
	// SourceNumber is the SourceForge ticket number the draft was built from
	SourceNumber int `yaml:"source_number"`

	Title    string   `yaml:"title"`
	Body     string   `yaml:"body"`
	Labels   []string `yaml:"labels"`
	Comments []string `yaml:"comments,omitempty"`
}

// IssueHandle identifies an issue created on GitHub.
type IssueHandle struct {
	// Number is the issue number assigned by GitHub
	Number int

	// URL is the issue's HTML URL, when GitHub returned one
	URL string
}

// Outcome summarises a migration pass.
type Outcome struct {
	// RunID correlates log lines of a single pass
	RunID string

	// Preview is true when no writes were performed
	Preview bool

	// Attempted is the number of tickets considered
	Attempted int

	// Succeeded is the number of tickets written, or that would have been written in preview mode
	Succeeded int

	// Failed lists ticket numbers whose issue could not be created
	Failed []int
}
