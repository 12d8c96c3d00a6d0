// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Status filters accepted by the SourceForge search endpoint.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
	StatusAll    = "all"
)

// Config holds all configuration parameters for the application.
type Config struct {
	SourceForge SourceForgeConfig `mapstructure:"sourceforge"`
	GitHub      GitHubConfig      `mapstructure:"github"`
	Migration   MigrationConfig   `mapstructure:"migration"`

	// Legacy holds the flat keys of the original JSON configuration file.
	Legacy LegacyConfig `mapstructure:",squash"`
}

// SourceForgeConfig holds SourceForge specific configuration.
type SourceForgeConfig struct {
	Project string `mapstructure:"project"`
	Tracker string `mapstructure:"tracker"`
	// BaseURL is the REST API root, e.g. https://sourceforge.net/rest
	BaseURL string `mapstructure:"base_url"`
	// Host prefixes relative attachment URLs.
	Host string `mapstructure:"host"`
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Token  string `mapstructure:"token"`
	Domain string `mapstructure:"domain"`
	// APIURL overrides the REST endpoint derived from Domain.
	APIURL string `mapstructure:"api_url"`
}

// Repository returns the repository in "owner/repo" form.
func (g GitHubConfig) Repository() string {
	return g.Owner + "/" + g.Repo
}

// MigrationConfig holds the parameters of a migration run.
type MigrationConfig struct {
	Status         string        `mapstructure:"status"`
	Limit          int           `mapstructure:"limit"`
	PageSize       int           `mapstructure:"page_size"`
	DryRun         bool          `mapstructure:"dry_run"`
	PreviewOutput  string        `mapstructure:"preview_output"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Pacing         PacingConfig  `mapstructure:"pacing"`
}

// PacingConfig holds the fixed delays inserted between outbound calls.
type PacingConfig struct {
	Page    time.Duration `mapstructure:"page"`
	Detail  time.Duration `mapstructure:"detail"`
	Comment time.Duration `mapstructure:"comment"`
	Issue   time.Duration `mapstructure:"issue"`
}

// LegacyConfig mirrors the flat configuration file layout
// ({"sf_project": ..., "gh_token": ...}).
type LegacyConfig struct {
	SFProject string `mapstructure:"sf_project"`
	SFTracker string `mapstructure:"sf_tracker"`
	GHOwner   string `mapstructure:"gh_owner"`
	GHRepo    string `mapstructure:"gh_repo"`
	GHToken   string `mapstructure:"gh_token"`
}

const defaultTracker = "bugs"

var defaults = map[string]any{
	"sourceforge.base_url":      "https://sourceforge.net/rest",
	"sourceforge.host":          "https://sourceforge.net",
	"github.domain":             "github.com",
	"github.api_url":            "",
	"migration.status":          StatusOpen,
	"migration.limit":           0,
	"migration.page_size":       100,
	"migration.dry_run":         false,
	"migration.preview_output":  "",
	"migration.request_timeout": 30 * time.Second,
	"migration.pacing.page":     time.Second,
	"migration.pacing.detail":   time.Second,
	"migration.pacing.comment":  time.Second,
	"migration.pacing.issue":    2 * time.Second,
}

var envBindings = map[string]string{
	"github.token":        "GITHUB_TOKEN",
	"github.domain":       "GITHUB_DOMAIN",
	"github.api_url":      "GITHUB_API_URL",
	"github.owner":        "GITHUB_OWNER",
	"github.repo":         "GITHUB_REPO",
	"sourceforge.project": "SF_PROJECT",
	"sourceforge.tracker": "SF_TRACKER",
}

// FlagBindings maps command line flag names to configuration keys.
var FlagBindings = map[string]string{
	"sf-project":     "sourceforge.project",
	"sf-tracker":     "sourceforge.tracker",
	"gh-owner":       "github.owner",
	"gh-repo":        "github.repo",
	"gh-token":       "github.token",
	"status":         "migration.status",
	"limit":          "migration.limit",
	"dry-run":        "migration.dry_run",
	"preview-output": "migration.preview_output",
}

// LoadConfig loads configuration from an optional file, environment variables
// and command line flags, in increasing order of precedence. flags may be nil.
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	if flags != nil {
		for name, key := range FlagBindings {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc())); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	config.applyLegacy()
	if config.SourceForge.Tracker == "" {
		config.SourceForge.Tracker = defaultTracker
	}
	config.Migration.Status = strings.ToLower(strings.TrimSpace(config.Migration.Status))

	return config, nil
}

// applyLegacy fills empty settings from the flat legacy keys.
func (c *Config) applyLegacy() {
	fill := func(target *string, legacy string) {
		if *target == "" {
			*target = legacy
		}
	}
	fill(&c.SourceForge.Project, c.Legacy.SFProject)
	fill(&c.SourceForge.Tracker, c.Legacy.SFTracker)
	fill(&c.GitHub.Owner, c.Legacy.GHOwner)
	fill(&c.GitHub.Repo, c.Legacy.GHRepo)
	fill(&c.GitHub.Token, c.Legacy.GHToken)
}

// Validate ensures that all required configuration values are provided and
// that the run parameters are usable. It reports every problem at once.
func (c *Config) Validate() error {
	var missing []string

	if c.SourceForge.Project == "" {
		missing = append(missing, "sourceforge project (--sf-project, SF_PROJECT)")
	}
	if c.GitHub.Owner == "" {
		missing = append(missing, "github owner (--gh-owner, GITHUB_OWNER)")
	}
	if c.GitHub.Repo == "" {
		missing = append(missing, "github repository (--gh-repo, GITHUB_REPO)")
	}
	if c.GitHub.Token == "" {
		missing = append(missing, "github token (--gh-token, GITHUB_TOKEN)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.Migration.Status {
	case StatusOpen, StatusClosed, StatusAll:
	default:
		return fmt.Errorf("invalid status %q: expected one of %s, %s, %s", c.Migration.Status, StatusOpen, StatusClosed, StatusAll)
	}

	if c.Migration.Limit < 0 {
		return fmt.Errorf("invalid limit %d: must not be negative", c.Migration.Limit)
	}
	if c.Migration.PageSize <= 0 {
		return fmt.Errorf("invalid page size %d: must be positive", c.Migration.PageSize)
	}
	if c.Migration.PreviewOutput != "" && !c.Migration.DryRun {
		return fmt.Errorf("preview output %q requires dry run (--dry-run)", c.Migration.PreviewOutput)
	}

	return nil
}
