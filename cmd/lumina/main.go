// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command lumina is the entry point for the Lumina server and its maintenance tasks.
//
// # Commands
//
//   - serve: run the HTTP server (migrates the schema first).
//   - migrate up|down: move the schema without starting the server.
//   - routes: print the embedded route table.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/taibuivan/lumina/internal/platform/constants"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Multi-tenant sign-in and workspace server",
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		routesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. It is created before configuration is
// loaded so that startup failures are structured JSON as well.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(logger)
	return logger
}
