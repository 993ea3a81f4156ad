package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/sandboxbench/internal/common"
	commonapp "github.com/armadaproject/sandboxbench/internal/common/app"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench"
	"github.com/armadaproject/sandboxbench/internal/sandboxbench/configuration"
)

const defaultConfigPath = "./config/sandboxbench"

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandboxbench",
		Short: "sandboxbench measures how long sandboxes take to move through their lifecycle.",
		Long: `sandboxbench repeatedly creates a sandbox, times every lifecycle transition until it is
ready, deletes it again and exports the timings as Prometheus metrics.

Defaults are read from ./config/sandboxbench/config.yaml. Any key can be overridden in a
file passed with --config, or with an environment variable such as
SANDBOXBENCH_POLLING_PHASETIMEOUT=5m.

The API token is read from $KOYEB_API_TOKEN.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Config file merged on top of the defaults.")

	app := sandboxbench.New()
	cmd.AddCommand(
		versionCmd(app),
		runCmd(app),
	)

	return cmd
}

// Print version info and exit.
func versionCmd(app *sandboxbench.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Version()
		},
	}
	return cmd
}

// Measure sandbox lifecycles until interrupted, serving metrics on the configured port.
func runCmd(app *sandboxbench.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure sandbox lifecycles and serve the timings as metrics.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commonapp.CreateContextWithShutdown()
			defer cancel()
			return app.Run(ctx)
		},
	}

	defaults := configuration.Default()
	cmd.Flags().Uint16("metricsPort", defaults.MetricsPort, "Port serving /metrics and /health.")
	cmd.Flags().String("metricType", string(defaults.MetricType), "Export phase durations as a gauge or a histogram.")
	cmd.Flags().StringSlice("regions", nil, "Regions to rotate through, one per cycle.")
	cmd.Flags().Int("maxCycles", defaults.MaxCycles, "Stop after this many cycles; 0 runs until interrupted.")

	return cmd
}

func initParams(cmd *cobra.Command, app *sandboxbench.App) error {
	overrideConfig, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	common.LoadConfig(&app.Params.Config, defaultConfigPath, overrideConfig, cmd.Flags())
	common.ConfigureLogMetrics(app.Registry)
	return nil
}
