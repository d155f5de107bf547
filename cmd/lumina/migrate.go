// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"github.com/spf13/cobra"

	"github.com/taibuivan/lumina/internal/platform/config"
	"github.com/taibuivan/lumina/internal/platform/migration"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	cmd.AddCommand(
		migrateDirectionCmd(migration.Up, "Apply every pending migration"),
		migrateDirectionCmd(migration.Down, "Roll back the most recent migration"),
	)
	return cmd
}

func migrateDirectionCmd(direction migration.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := newLogger(cfg.Debug)
			return migration.Run(direction, cfg.DatabaseURL, cfg.MigrationPath, logger)
		},
	}
}
