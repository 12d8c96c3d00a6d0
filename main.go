// Package main is the entry point for the sfmigrate CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/danielolaszy/sfmigrate/cmd"
	"github.com/danielolaszy/sfmigrate/internal/logging"
)

const version = "1.0.0"

// main is the entry point of the application.
// It executes the root command and handles any errors that occur.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	logging.Debug("starting sfmigrate", "version", version)

	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Sync()
}
