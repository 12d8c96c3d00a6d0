// Package cmd provides the command-line interface for the sfmigrate tool.
package cmd

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/sfmigrate/internal/logging"
)

const appName = "sfmigrate"

// logFile is the run log opened from --log-dir, if any.
var logFile *os.File

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "sfmigrate migrates SourceForge tickets to GitHub issues",
	Long: `sfmigrate is a CLI tool that copies SourceForge tracker tickets into a GitHub
repository as issues, keeping descriptions, attachments, labels and the
discussion history of every ticket.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: closeLogFile,
}

// Execute adds all child commands to the root command and runs it with ctx.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		// PersistentPostRunE is skipped on failure.
		logging.Error("command execution failed", "error", err)
		logging.Sync()
		_ = closeLogFile(rootCmd, nil)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json (default console, env LOG_FORMAT)")
	rootCmd.PersistentFlags().String("log-dir", "", "Also append logs to a dated file in this directory")

	rootCmd.AddCommand(newMigrateCmd())
}

// setupLogging reconfigures the default logger from the persistent flags,
// falling back to LOG_LEVEL and LOG_FORMAT.
func setupLogging(cmd *cobra.Command, _ []string) error {
	level := logging.LogLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		level = logging.LevelDebug
	}

	format := logging.LogFormat(strings.ToLower(os.Getenv("LOG_FORMAT")))
	if value, err := cmd.Flags().GetString("log-format"); err == nil && value != "" {
		format = logging.LogFormat(strings.ToLower(value))
	}

	var w io.Writer = cmd.ErrOrStderr()
	if dir, err := cmd.Flags().GetString("log-dir"); err == nil && dir != "" {
		file, err := logging.OpenLogFile(dir, appName, time.Now())
		if err != nil {
			return err
		}
		logFile = file
		w = io.MultiWriter(w, file)
	}

	logging.SetupLogger(w, level, format)
	return nil
}

func closeLogFile(_ *cobra.Command, _ []string) error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}
