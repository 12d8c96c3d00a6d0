package migration

import (
	"fmt"
	"strings"

	"github.com/danielolaszy/sfmigrate/pkg/models"
)

const (
	// MigrationLabel is the first label of every migrated issue.
	MigrationLabel = "migrated-from-sourceforge"

	// DefaultSourceHost prefixes relative attachment URLs.
	DefaultSourceHost = "https://sourceforge.net"

	statusLabelPrefix = "sf-status-"
	noDescription     = "*(No description provided)*"
	defaultSummary    = "No summary"
	defaultAuthor     = "unknown"
	provenanceMarker  = "*(SourceForge)*"
	markdownSeparator = "---"
)

// Transform converts a ticket summary and its optional detail into an issue
// draft. sourceHost is used to absolutize relative attachment URLs; empty
// means DefaultSourceHost. Missing fields degrade to placeholders.
func Transform(summary models.TicketSummary, detail *models.TicketDetail, sourceHost string) models.IssueDraft {
	if sourceHost == "" {
		sourceHost = DefaultSourceHost
	}
	if detail == nil {
		detail = &models.TicketDetail{}
	}

	return models.IssueDraft{
		SourceNumber: summary.Number,
		Title:        issueTitle(summary),
		Body:         issueBody(summary, detail, sourceHost),
		Labels:       issueLabels(summary.Status, detail.Labels),
		Comments:     issueComments(detail.DiscussionThread.Posts),
	}
}

func issueTitle(summary models.TicketSummary) string {
	text := summary.Summary
	if text == "" {
		text = defaultSummary
	}
	return fmt.Sprintf("[SF#%d] %s", summary.Number, text)
}

func issueBody(summary models.TicketSummary, detail *models.TicketDetail, sourceHost string) string {
	reporter := summary.ReportedBy
	if reporter == "" {
		reporter = defaultAuthor
	}

	description := detail.Description
	if description == "" {
		description = summary.Description
	}
	if description == "" {
		description = noDescription
	}

	lines := []string{
		fmt.Sprintf("**Migrated from SourceForge ticket #%d**", summary.Number),
		"",
		"**Original Reporter:** " + reporter,
		"**Created:** " + summary.CreatedDate,
		"**Last Modified:** " + summary.ModDate,
		"**Status:** " + summary.Status,
		"",
		markdownSeparator,
		"",
		"## Description",
		"",
		description,
	}

	if len(detail.Attachments) > 0 {
		lines = append(lines, "", markdownSeparator, "", "## Attachments", "")
		for _, attachment := range detail.Attachments {
			if attachment.URL == "" {
				continue
			}
			lines = append(lines, attachmentLine(attachment, sourceHost))
		}
	}

	return strings.Join(lines, "\n")
}

// attachmentLine embeds images and links every other file.
func attachmentLine(attachment models.Attachment, sourceHost string) string {
	name := attachment.Filename()
	target := attachment.ResolveURL(sourceHost)
	if attachment.IsImage() {
		return fmt.Sprintf("![%s](%s)", name, target)
	}
	return fmt.Sprintf("- [%s](%s)", name, target)
}

// SanitizeLabel lowercases a label and replaces spaces with hyphens.
func SanitizeLabel(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "-")
}

// issueLabels keeps source labels in order and does not deduplicate them.
func issueLabels(status string, sourceLabels []string) []string {
	labels := []string{MigrationLabel}
	if status != "" {
		labels = append(labels, statusLabelPrefix+SanitizeLabel(status))
	}
	for _, label := range sourceLabels {
		if label == "" {
			continue
		}
		labels = append(labels, SanitizeLabel(label))
	}
	return labels
}

func issueComments(posts []models.Post) []string {
	var comments []string
	for _, post := range posts {
		if post.Text == "" {
			continue
		}
		author := post.Author
		if author == "" {
			author = defaultAuthor
		}
		comments = append(comments, strings.Join([]string{
			fmt.Sprintf("**Comment by %s** %s", author, provenanceMarker),
			"**Date:** " + post.Timestamp,
			"",
			post.Text,
		}, "\n"))
	}
	return comments
}
