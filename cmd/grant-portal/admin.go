package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"grant-portal/internal/admin"
	"grant-portal/internal/common/errors"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var statusStyles = map[admin.Status]lipgloss.Style{
	admin.StatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	admin.StatusApproved: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	admin.StatusRejected: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newAdminCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review submitted applications (requires login --admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		newAdminListCommand(g),
		newAdminShowCommand(g),
		newAdminStatusCommand(g),
	)
	return cmd
}

func newAdminListCommand(g *globals) *cobra.Command {
	var (
		page        int
		status      string
		search      string
		fundingType string
		sortBy      string
		desc        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Long: `Fetches one page of applications from the server, filtered by status and
search text there, then narrows by funding type and sorts locally.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := admin.Query{Page: page, Search: search}
			if status != "" {
				st, ok := admin.ParseStatus(status)
				if !ok {
					return errors.NewInvalidFieldValueError("status", "one of PENDING, APPROVED, REJECTED", status)
				}
				q.Status = st
			}
			field, ok := admin.ParseSortField(sortBy)
			if !ok {
				return errors.NewInvalidFieldValueError("sort", "submittedAt, name, fundingAmount or fundingType", sortBy)
			}

			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				result, err := a.adminService().ListApplications(ctx, q)
				if err != nil {
					return err
				}
				apps := admin.Filter{FundingType: fundingType}.Apply(result.Applications)
				apps = admin.Sort(apps, field, desc)

				renderApplications(g.out, apps)
				counts := admin.CountByStatus(result.Applications)
				fmt.Fprintf(g.out, "Page %d of %d  |  pending %d  approved %d  rejected %d\n",
					result.CurrentPage, result.TotalPages,
					counts[admin.StatusPending], counts[admin.StatusApproved], counts[admin.StatusRejected])
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&page, "page", 1, "page to fetch")
	flags.StringVar(&status, "status", "", "only PENDING, APPROVED or REJECTED applications")
	flags.StringVar(&search, "search", "", "search name, email, city or purpose")
	flags.StringVar(&fundingType, "funding-type", "", "only this funding type")
	flags.StringVar(&sortBy, "sort", "submittedAt", "sort by submittedAt, name, fundingAmount or fundingType")
	flags.BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func newAdminShowCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show <application-id>",
		Short: "Show one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				application, err := a.adminService().GetApplication(ctx, args[0])
				if err != nil {
					return err
				}
				renderApplication(g.out, application)
				return nil
			})
		},
	}
}

func newAdminStatusCommand(g *globals) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "status <application-id> <PENDING|APPROVED|REJECTED>",
		Short: "Change the status of an application",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := admin.ParseStatus(args[1])
			if !ok {
				return errors.NewInvalidFieldValueError("status", "one of PENDING, APPROVED, REJECTED", args[1])
			}
			return g.withApp(cmd, func(ctx context.Context, a *app) error {
				updated, err := a.adminService().UpdateStatus(ctx, args[0], status, notes)
				if err != nil {
					return err
				}
				fmt.Fprintf(g.out, "Application %s is now %s\n", updated.ID, styledStatus(updated.Status))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "reviewer notes stored with the change")
	return cmd
}

func styledStatus(s admin.Status) string {
	if style, ok := statusStyles[s]; ok {
		return style.Render(string(s))
	}
	return string(s)
}

func renderApplications(w io.Writer, apps []admin.Application) {
	if len(apps) == 0 {
		fmt.Fprintln(w, "No applications found")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "EMAIL", "TYPE", "AMOUNT", "STATUS", "SUBMITTED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, a := range apps {
		submitted := ""
		if !a.CreatedAt.IsZero() {
			submitted = a.CreatedAt.Format("2006-01-02")
		}
		t.Row(
			a.ID,
			a.Name(),
			a.PersonalInfo.Email,
			a.FundingInfo.FundingType,
			formatAmount(float64(a.FundingInfo.FundingAmount)),
			styledStatus(a.Status),
			submitted,
		)
	}
	fmt.Fprintln(w, t.Render())
}

func renderApplication(w io.Writer, a *admin.Application) {
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-16s %s\n", label+":", value)
		}
	}
	line("ID", a.ID)
	line("Status", styledStatus(a.Status))
	line("Name", a.Name())
	line("Email", a.PersonalInfo.Email)
	line("Phone", a.PersonalInfo.PhoneNumber)
	line("Address", strings.Trim(strings.Join([]string{a.AddressInfo.StreetAddress, a.AddressInfo.City, a.AddressInfo.State, a.AddressInfo.Zip}, ", "), ", "))
	line("Funding type", a.FundingInfo.FundingType)
	line("Amount", formatAmount(float64(a.FundingInfo.FundingAmount)))
	line("Purpose", a.FundingInfo.FundingPurpose)
	line("Timeframe", a.FundingInfo.Timeframe)
	line("Notes", a.AdminNotes)
	if !a.CreatedAt.IsZero() {
		line("Submitted", a.CreatedAt.Format("2006-01-02 15:04"))
	}
	for _, h := range a.StatusHistory {
		fmt.Fprintf(w, "  %s  %s %s\n", h.ChangedAt.Format("2006-01-02 15:04"), h.Status, h.Notes)
	}
}

// formatAmount renders 120000 as $120,000.
func formatAmount(v float64) string {
	whole := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}
