package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/woodsintl/woodsreport/internal/config"
)

var (
	cfgFile    string
	envFile    string
	dataDir    string
	apiBase    string
	devMode    bool
	appVersion string
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "woodsreport",
		Short: "Woods International reporting proxy and terminal client",
		Long: `woodsreport serves the Woods International SQL Server database over a small
HTTP API (stored procedures, parameterized queries, dashboard probes) and runs
the same reports from the terminal behind a login that expires after a period
of inactivity.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./woodsreport.yaml)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with pool credentials")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for local state (default: ~/.woodsreport)")
	cmd.PersistentFlags().StringVar(&apiBase, "api", "", "API base URL for client commands (default from client.api_base)")
	cmd.PersistentFlags().BoolVar(&devMode, "dev", false, "Enable development mode (debug logging)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoAmICmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newClientsCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

// initConfig loads the dotenv file first so that ${VAR} references and
// WOODSREPORT_* overrides see it, then the optional config file.
func initConfig() error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("woodsreport")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.woodsreport")
	}

	viper.SetEnvPrefix("WOODSREPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	if used := viper.ConfigFileUsed(); used != "" && devMode {
		fmt.Fprintf(os.Stderr, "using config %s\n", used)
	}
	return nil
}
