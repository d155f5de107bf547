// Copyright (c) 2026 Lumina. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taibuivan/lumina/internal/route"
)

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table in matching order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := route.Load()
			if err != nil {
				return err
			}
			return printRoutes(cmd.OutOrStdout(), registry)
		},
	}
}

func printRoutes(out io.Writer, registry *route.Registry) error {
	table := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "NAME\tMETHODS\tPATTERN\tKIND\tAUTH\tPERMISSION\tRATE LIMIT")

	for _, config := range registry.Routes() {
		permission := config.Permission
		if permission == "" {
			permission = "-"
		}

		limit := "-"
		if config.RateLimit != nil {
			limit = fmt.Sprintf("%d/%s", config.RateLimit.Max, config.RateLimit.Window)
		}

		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			config.Name,
			strings.Join(config.Methods, ","),
			config.Pattern,
			config.Kind,
			config.Auth,
			permission,
			limit,
		)
	}

	return table.Flush()
}
