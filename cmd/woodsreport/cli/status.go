package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/render"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the API server and its database pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			api := newAPIClient(cfg)
			ctx, cancel := commandContext(5 * time.Second)
			defer cancel()

			if err := api.Health(ctx); err != nil {
				return fmt.Errorf("API server at %s is not responding: %w", api.BaseURL(), err)
			}
			st, err := api.Store(ctx)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), st)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "API server: %s\n", api.BaseURL())
			if err := render.Status(cmd.OutOrStdout(), *st); err != nil {
				return err
			}
			if st.Status == model.StatusConnected {
				if dash, err := api.Dashboard(ctx); err == nil && dash.Data.Len() > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Tables: %s\n", render.Value(dash.Data.Rows[0]["table_count"]))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}
