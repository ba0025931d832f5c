package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/woodsintl/woodsreport/internal/client"
	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/render"
	"github.com/woodsintl/woodsreport/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "List and run reports",
	}
	cmd.AddCommand(newReportListCmd())
	cmd.AddCommand(newReportRunCmd())
	return cmd
}

func newReportListCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the report catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}
			return render.Reports(cmd.OutOrStdout(), catalog.List(report.Category(category)))
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Only list reports or logs")

	return cmd
}

type runFlags struct {
	year   int
	client string
	from   string
	to     string
	format string
	sortBy string
	desc   bool
	output string
}

func newReportRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run <key>",
		Short: "Run a report",
		Example: `  woodsreport report run container_month_wise --year 2024
  woodsreport report run container_client_wise --year 2024 --client "ACME"
  woodsreport report run grading_summary --from 2024-01-01 --to 2024-01-31 --format csv -o grading.csv
  woodsreport report run date_wise_grading --from 2024-01-01 --to 2024-01-31 -f xlsx -o grading.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args[0], f)
		},
	}

	cmd.Flags().IntVar(&f.year, "year", time.Now().Year(), "Year for year-based reports")
	cmd.Flags().StringVar(&f.client, "client", "", "Client name for client-wise reports (default all clients)")
	cmd.Flags().StringVar(&f.from, "from", "", "Start date, YYYY-MM-DD or DD/MM/YYYY")
	cmd.Flags().StringVar(&f.to, "to", "", "End date, YYYY-MM-DD or DD/MM/YYYY")
	cmd.Flags().StringVarP(&f.format, "format", "f", "table", "Output format: table, json, csv or xlsx")
	cmd.Flags().StringVar(&f.sortBy, "sort", "", "Sort rows by this column")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "Sort descending")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func runReport(cmd *cobra.Command, key string, f runFlags) error {
	format, err := render.ParseFormat(f.format)
	if err != nil {
		return err
	}
	if err := checkOutput(format, f.output); err != nil {
		return err
	}
	ui := report.UIState{Year: f.year, Client: f.client}
	if ui.From, err = report.ParseDate(f.from); err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	if ui.To, err = report.ParseDate(f.to); err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	if valid := report.YearChoices(time.Now()); cmd.Flags().Changed("year") && !containsInt(valid, ui.Year) {
		return fmt.Errorf("year %d is not selectable (choose %d to %d)", ui.Year, valid[len(valid)-1], valid[0])
	}

	env, err := requireSession(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	catalog, err := loadCatalog(env.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(config.ParseDuration(env.cfg.Client.Timeout, client.DefaultTimeout))
	defer cancel()
	res, err := catalog.Run(ctx, env.api, key, ui)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Unavailable() {
			return fmt.Errorf("%w (see 'woodsreport status')", err)
		}
		return err
	}

	opts := render.Options{Format: format, SortBy: f.sortBy, Desc: f.desc}
	return writeOutput(cmd, f.output, func(w io.Writer) error {
		return render.Report(w, res, opts)
	})
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
