package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/danielolaszy/sfmigrate/internal/config"
	"github.com/danielolaszy/sfmigrate/internal/github"
	"github.com/danielolaszy/sfmigrate/internal/logging"
	"github.com/danielolaszy/sfmigrate/internal/migration"
	"github.com/danielolaszy/sfmigrate/internal/sourceforge"
)

// newMigrateCmd builds the command that migrates SourceForge tickets to GitHub issues.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate SourceForge tickets to GitHub issues",
		Long: `Migrate SourceForge tracker tickets to GitHub issues.

Every ticket becomes one issue titled "[SF#<number>] <summary>". The issue body
records the original reporter, dates and status, the ticket description and its
attachments (images are embedded, other files linked). Each non-empty discussion
post is added as a comment, in order. Issues are labelled
'migrated-from-sourceforge', 'sf-status-<status>' and the ticket's own labels.

Settings can come from a config file (--config, JSON/YAML/TOML), environment
variables (SF_PROJECT, SF_TRACKER, GITHUB_OWNER, GITHUB_REPO, GITHUB_TOKEN,
GITHUB_DOMAIN, GITHUB_API_URL) or flags; flags take precedence.

Examples:
  # Migrate all open tickets
  sfmigrate migrate --sf-project myproject --gh-owner myuser --gh-repo myrepo --gh-token TOKEN

  # Dry run to see what would be migrated
  sfmigrate migrate --config config.json --dry-run

  # Migrate only 5 tickets for testing
  sfmigrate migrate --config config.json --limit 5`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	addMigrateFlags(cmd.Flags())
	return cmd
}

func addMigrateFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to configuration file")
	flags.String("sf-project", "", "SourceForge project name")
	flags.String("sf-tracker", "", "SourceForge tracker name (default: bugs)")
	flags.String("gh-owner", "", "GitHub repository owner")
	flags.String("gh-repo", "", "GitHub repository name")
	flags.String("gh-token", "", "GitHub personal access token (or GITHUB_TOKEN)")
	flags.String("status", config.StatusOpen, "Status of tickets to migrate: open, closed or all")
	flags.Int("limit", 0, "Maximum number of tickets to migrate (0 for all)")
	flags.Bool("dry-run", false, "Don't create issues, just show what would be done")
	flags.String("preview-output", "", "With --dry-run, write the issue drafts to this YAML file")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := logging.GetLogger()

	logging.Info("migration configuration",
		"sf_project", cfg.SourceForge.Project,
		"sf_tracker", cfg.SourceForge.Tracker,
		"repository", cfg.GitHub.Repository(),
		"token", logging.MaskSensitive(cfg.GitHub.Token),
		"status", cfg.Migration.Status,
		"limit", cfg.Migration.Limit,
		"dry_run", cfg.Migration.DryRun)

	source := sourceforge.NewClient(cfg.SourceForge.Project, cfg.SourceForge.Tracker,
		sourceforge.WithBaseURL(cfg.SourceForge.BaseURL),
		sourceforge.WithTimeout(cfg.Migration.RequestTimeout),
		sourceforge.WithPageDelay(cfg.Migration.Pacing.Page),
		sourceforge.WithLogger(logger))

	opts := []migration.Option{
		migration.WithLogger(logger),
		migration.WithSourceHost(cfg.SourceForge.Host),
		migration.WithPageSize(cfg.Migration.PageSize),
		migration.WithPacing(migration.Pacing{
			AfterDetail:     cfg.Migration.Pacing.Detail,
			BetweenComments: cfg.Migration.Pacing.Comment,
			AfterIssue:      cfg.Migration.Pacing.Issue,
		}),
	}

	var destination migration.Destination
	if cfg.Migration.DryRun {
		if cfg.Migration.PreviewOutput != "" {
			file, err := os.Create(cfg.Migration.PreviewOutput)
			if err != nil {
				return fmt.Errorf("failed to create preview output: %w", err)
			}
			defer file.Close()

			exporter := migration.NewYAMLExporter(file)
			defer func() {
				if err := exporter.Close(); err != nil {
					logging.Error("failed to flush preview output", "path", cfg.Migration.PreviewOutput, "error", err)
					return
				}
				logging.Info("wrote issue drafts", "path", cfg.Migration.PreviewOutput, "count", exporter.Count())
			}()
			opts = append(opts, migration.WithDraftSink(exporter))
		}
	} else {
		githubClient, err := github.NewClient(ctx, cfg.GitHub,
			github.WithTimeout(cfg.Migration.RequestTimeout),
			github.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to initialize github client: %w", err)
		}
		if err := githubClient.Verify(ctx); err != nil {
			return err
		}
		destination = githubClient
	}

	outcome, err := migration.New(source, destination, opts...).Run(ctx, migration.RunOptions{
		Status:  cfg.Migration.Status,
		Limit:   cfg.Migration.Limit,
		Preview: cfg.Migration.DryRun,
	})

	verb := "migrated"
	if outcome.Preview {
		verb = "would be migrated"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Migration completed: %d/%d tickets %s\n", outcome.Succeeded, outcome.Attempted, verb)
	if len(outcome.Failed) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Failed tickets: %v\n", outcome.Failed)
	}

	return err
}
