package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/woodsintl/woodsreport/internal/client"
	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/model"
	"github.com/woodsintl/woodsreport/internal/render"
)

func newClientsCmd() *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List client names for the --client filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			if err := checkOutput(f, output); err != nil {
				return err
			}
			env, err := requireSession(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, cancel := commandContext(config.ParseDuration(env.cfg.Client.Timeout, client.DefaultTimeout))
			defer cancel()
			clients, err := env.api.Clients(ctx)
			if err != nil {
				return err
			}

			rs := model.NewRecordset([]string{"client_name"})
			for _, c := range clients {
				rs.Append(model.Row{"client_name": c.ClientName})
			}
			return writeOutput(cmd, output, func(w io.Writer) error {
				return render.Recordset(w, "Clients", rs, f)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, json, csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}
