package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"dispenser-tracker-backend/internal/dispenser"
	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/seed"
	"dispenser-tracker-backend/internal/store"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := ctx.open(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func newSeedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the default schedules when none exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, logger, err := ctx.open()
			if err != nil {
				return err
			}
			n, err := seed.Schedules(cmd.Context(), store.NewGormStore(gdb), logger)
			if err != nil {
				return fmt.Errorf("seed schedules: %w", err)
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Schedules already present; nothing to do")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %d default schedules\n", n)
			return nil
		},
	}
}

func newProjectionsCommand(ctx *commandContext) *cobra.Command {
	var clientID string
	var status string
	var below float64
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "projections",
		Short: "Show projected levels of dispensers",
		RunE: func(cmd *cobra.Command, args []string) error {
			gdb, logger, err := ctx.open()
			if err != nil {
				return err
			}
			m := dispenser.NewManager(store.NewGormStore(gdb), logger)

			projections, err := m.Projections(cmd.Context(), store.InstanceFilter{
				Status:   model.InstanceStatus(strings.ToLower(strings.TrimSpace(status))),
				ClientID: strings.TrimSpace(clientID),
			})
			if err != nil {
				return err
			}
			projections = filterBelow(projections, below)
			sortByUrgency(projections)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(projections)
			}
			if len(projections) == 0 {
				fmt.Fprintln(out, "No dispensers match")
				return nil
			}
			fmt.Fprintln(out, renderProjections(projections))
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "Only show dispensers of this client id")
	cmd.Flags().StringVar(&status, "status", string(model.StatusInstalled), "Only show dispensers in this status (empty for all)")
	cmd.Flags().Float64Var(&below, "below", 0, "Only show dispensers with fewer days left than this")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func filterBelow(in []dispenser.UsageProjection, below float64) []dispenser.UsageProjection {
	if below <= 0 {
		return in
	}
	out := in[:0]
	for _, p := range in {
		if p.DaysUntilEmpty != nil && *p.DaysUntilEmpty < below {
			out = append(out, p)
		}
	}
	return out
}

// sortByUrgency orders by days left; dispensers without a projection go last.
func sortByUrgency(in []dispenser.UsageProjection) {
	sort.SliceStable(in, func(i, j int) bool {
		a, b := in[i].DaysUntilEmpty, in[j].DaysUntilEmpty
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return *a < *b
	})
}

func renderProjections(projections []dispenser.UsageProjection) string {
	headers := []string{"Code", "Dispenser", "Level (ml)", "Projected (ml)", "Daily (ml)", "Days left"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(projections))
	for _, p := range projections {
		days := "-"
		if p.DaysUntilEmpty != nil {
			days = fmt.Sprintf("%.2f", *p.DaysUntilEmpty)
		}
		rows = append(rows, []string{
			p.UniqueCode,
			p.DispenserID,
			fmt.Sprintf("%.2f", p.CurrentLevelML),
			fmt.Sprintf("%.2f", p.ProjectedLevelML),
			fmt.Sprintf("%.2f", p.DailyUsageML),
			days,
		})
	}
	return renderTable(headers, rows, aligns)
}
