// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/holomush/nautilus/internal/hook"
	"github.com/holomush/nautilus/pkg/errutil"
)

// loadConfig holds configuration for the load command.
type loadConfig struct {
	base   string
	strict bool
}

// NewLoadCmd creates the load subcommand.
func NewLoadCmd(g *globalConfig) *cobra.Command {
	cfg := &loadConfig{}

	cmd := &cobra.Command{
		Use:   "load <target>...",
		Short: "Load categories or hooks and report the outcome",
		Long: `Load each target in turn. A target is a category, a
"<category>:<name>" identifier, or a bare hook name. A missing target
loads nothing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, g, cfg, args)
		},
	}

	cmd.Flags().StringVar(&cfg.base, "base", "", "load from this root instead of the configured one")
	cmd.Flags().BoolVar(&cfg.strict, "strict", false, "exit with an error if any hook fails")

	return cmd
}

func runLoad(cmd *cobra.Command, g *globalConfig, cfg *loadConfig, targets []string) error {
	a, err := newApp(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	reports := a.LoadAll(cmd.Context(), targets, hook.WithBase(cfg.base))

	failed := 0
	for _, report := range reports {
		printReport(cmd.OutOrStdout(), report)
		failed += report.Count(hook.StatusFailed)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "\ncontext: %v\n", a.Context().Names())

	if cfg.strict && failed > 0 {
		return fmt.Errorf("%d hook(s) failed", failed)
	}
	return nil
}

func printReport(w io.Writer, report hook.Report) {
	if len(report.Records) == 0 {
		_, _ = fmt.Fprintf(w, "%s: nothing to load\n", report.Target)
		return
	}
	_, _ = fmt.Fprintf(w, "%s (pass %s)\n", report.Target, report.Pass)
	for _, rec := range report.Records {
		switch rec.Status {
		case hook.StatusFailed:
			_, _ = fmt.Fprintf(w, "  %-8s %s [%s] %v\n", rec.Status, rec.ID, errutil.Code(rec.Err), rec.Err)
		case hook.StatusSkipped:
			_, _ = fmt.Fprintf(w, "  %-8s %s\n", rec.Status, rec.ID)
		default:
			_, _ = fmt.Fprintf(w, "  %-8s %s %s\n", rec.Status, rec.ID, rec.Duration)
		}
	}
}
