package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"grant-portal/internal/audit"
	"grant-portal/internal/common/errors"
	"grant-portal/internal/options"

	"github.com/spf13/cobra"
)

func newOptionsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the choices offered by the application form and where they came from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				provider, err := a.optionsProvider()
				if err != nil {
					return err
				}
				set, source, err := provider.Load(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(g.out, "Source: %s\n", source)
				for _, category := range options.Categories {
					fmt.Fprintf(g.out, "%s: %s\n", category, strings.Join(set.Values(category), ", "))
				}
				if unknown := set.UnknownCategories(); len(unknown) > 0 {
					fmt.Fprintf(g.out, "Ignored categories: %s\n", strings.Join(unknown, ", "))
				}
				return nil
			})
		},
	}
}

func newHistoryCommand(g *globals) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent submission attempts from the audit table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return errors.NewInvalidFieldValueError("limit", "a positive number", limit)
			}
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.cfg.Audit.Enabled {
					return errors.NewConfigInvalidError("audit.enabled is false; no submission history is recorded")
				}
				rec, err := a.auditRecorder(ctx)
				if err != nil {
					return err
				}
				entries, err := rec.Recent(ctx, limit)
				if err != nil {
					return err
				}
				renderHistory(g, entries)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}

func renderHistory(g *globals, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(g.out, "No submissions recorded")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-10s", e.CreatedAt.Local().Format(time.DateTime), e.Status)
		if e.HTTPStatus != 0 {
			line += fmt.Sprintf("  HTTP %d", e.HTTPStatus)
		}
		line += fmt.Sprintf("  %dms", e.DurationMs)
		if e.Message != "" {
			line += "  " + e.Message
		}
		fmt.Fprintln(g.out, line)
	}
}
