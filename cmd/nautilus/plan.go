// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holomush/nautilus/internal/hook"
)

// NewPlanCmd creates the plan subcommand.
func NewPlanCmd(g *globalConfig) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "plan <target>",
		Short: "Show the hooks a load would run, in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, g)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			plan := a.Engine.Plan(cmd.Context(), args[0], hook.WithBase(base))
			if len(plan) == 0 {
				cmd.Printf("%s: nothing to load\n", args[0])
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "ORDER\tHOOK\tENABLED\tSOURCE\tERROR")
			for _, d := range plan {
				source := d.Source
				if source == "" {
					source = "(go)"
				}
				errText := ""
				if d.Err != nil {
					errText = d.Err.Error()
				}
				_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\n",
					d.Order, d.ID(), hook.Enabled(a.Config, d.Name), source, errText)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "plan from this root instead of the configured one")
	return cmd
}
