package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"race-telemetry-dashboard/internal/charts"
	"race-telemetry-dashboard/internal/dashboard"
	"race-telemetry-dashboard/internal/drivers"
	"race-telemetry-dashboard/internal/models"
)

// selection holds the race selection flags shared by the inspect commands.
type selection struct {
	raceID  string
	session string
	drivers []string
}

func (s *selection) addFlags(cmd *cobra.Command, withDrivers bool) {
	cmd.Flags().StringVarP(&s.raceID, "race", "r", "", "Race ID, e.g. 2024_bahrain")
	cmd.Flags().StringVarP(&s.session, "session", "s", "R", "Session (R or Q)")
	if withDrivers {
		cmd.Flags().StringSliceVarP(&s.drivers, "drivers", "d", nil, "Driver IDs (default all)")
	}
	_ = cmd.MarkFlagRequired("race")
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	return t
}

// racesCmd lists the races of the API
func racesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "races",
		Short: "List the races of the racing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			races, err := c.ListRaces(cmd.Context())
			if err != nil {
				return err
			}
			if len(races) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No races found.")
				return nil
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Race ID", "Name", "Circuit", "Date"})
			for _, r := range races {
				t.AppendRow(table.Row{r.RaceID, r.Name, r.Circuit, r.Date})
			}
			t.Render()
			return nil
		},
	}
}

// driversCmd lists the drivers of a race session
func driversCmd() *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:   "drivers",
		Short: "List the drivers of a race session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := models.ParseSession(sel.session)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			ids, err := c.ListDrivers(cmd.Context(), sel.raceID, session)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"#", "Driver", "Team"})
			for _, id := range ids {
				team := "unknown"
				if d, ok := drivers.Lookup(id); ok {
					team = d.Team
				}
				t.AppendRow(table.Row{id, drivers.DisplayName(id), team})
			}
			t.AppendFooter(table.Row{"", fmt.Sprintf("%d drivers", len(ids)), session.String()})
			t.Render()
			return nil
		},
	}
	sel.addFlags(cmd, false)
	return cmd
}

// summaryCmd shows the lap statistics of a race session
func summaryCmd() *cobra.Command {
	var sel selection
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show lap statistics of a race session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := models.ParseSession(sel.session)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.GetSummary(cmd.Context(), sel.raceID, sel.drivers, session)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Driver", "Fastest Lap", "Average Lap", "Laps"})
			for _, card := range charts.SummaryCards(resp) {
				t.AppendRow(table.Row{card.Label, card.FastestLap, card.AverageLap, card.LapsCompleted})
			}
			t.Render()
			return nil
		},
	}
	sel.addFlags(cmd, true)
	return cmd
}

// renderCmd exports the dashboard charts of a selection as PNG files
func renderCmd() *cobra.Command {
	var (
		sel           selection
		lap           int
		metric        string
		outDir        string
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Export the dashboard charts of a race session as PNG files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			session, err := models.ParseSession(sel.session)
			if err != nil {
				return err
			}
			m, err := models.ParseMetric(metric)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}

			ctrl := dashboard.NewController(c, dashboard.WithAPIName(c.BaseURL()))
			defer ctrl.Close()
			if err := ctrl.Init(ctx); err != nil {
				return err
			}
			// no race selected yet, so this only sets the metric
			if err := ctrl.ChangeMetric(ctx, m); err != nil {
				return err
			}
			if err := ctrl.SelectRace(ctx, sel.raceID); err != nil {
				return err
			}
			if session != models.SessionRace {
				if err := ctrl.SelectSession(ctx, session); err != nil {
					return err
				}
			}
			if len(sel.drivers) > 0 {
				ctrl.SelectDrivers(sel.drivers)
			}
			ctrl.SelectLap(lap)
			if err := ctrl.Load(ctx); err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			view := ctrl.View()
			for _, slot := range charts.Slots {
				h, ok := ctrl.Registry().Get(slot)
				if !ok {
					continue
				}
				title := charts.SlotTitle(slot)
				if slot == charts.SlotTelemetry {
					title = view.TelemetryTitle
				}
				path := filepath.Join(outDir, fmt.Sprintf("%s-%s-%s.png", sel.raceID, session, slot))
				if err := writePNG(path, h.Config, title, width, height); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", path)
			}
			if h, ok := ctrl.Registry().Get(charts.SlotTelemetry); ok {
				for _, line := range peakValues(h.Config, m) {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
			return nil
		},
	}
	sel.addFlags(cmd, true)
	cmd.Flags().IntVarP(&lap, "lap", "l", 1, "Lap of the telemetry chart")
	cmd.Flags().StringVarP(&metric, "metric", "m", string(models.MetricSpeed),
		"Telemetry metric ("+strings.Join(metricNames(), ", ")+")")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Output directory")
	cmd.Flags().IntVar(&width, "width", charts.DefaultWidth, "Image width in pixels")
	cmd.Flags().IntVar(&height, "height", charts.DefaultHeight, "Image height in pixels")
	return cmd
}

// peakValues lists the highest sample of every driver trace of a telemetry chart.
func peakValues(cfg charts.Config, m models.Metric) []string {
	var ret []string
	for _, ds := range cfg.Data.Datasets {
		if len(ds.Data) == 0 {
			continue
		}
		peak := lo.MaxBy(ds.Data, func(a, b charts.Point) bool { return a.Y > b.Y })
		ret = append(ret, fmt.Sprintf("peak %s %s: %s", m, ds.Label, charts.FormatMetricValue(m, peak.Y)))
	}
	return ret
}

func metricNames() []string {
	return lo.Map(models.Metrics, func(m models.Metric, _ int) string { return string(m) })
}

func writePNG(path string, cfg charts.Config, title string, width, height int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return charts.RenderPNG(f, cfg, title, width, height)
}

// healthCmd checks whether the racing API answers
func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the racing API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !c.CheckHealth(cmd.Context()) {
				color.New(color.FgRed).Fprintf(out, "✗ racing API at %s is not reachable\n", c.BaseURL())
				return dashboard.ErrUnavailable
			}
			color.New(color.FgGreen).Fprintf(out, "✓ racing API at %s is reachable\n", c.BaseURL())
			return nil
		},
	}
}
