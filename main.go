package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"sheets_obs_sync/internal/app"
	"sheets_obs_sync/internal/cells"
	"sheets_obs_sync/internal/config"
	"sheets_obs_sync/internal/files"
	"sheets_obs_sync/internal/obs"
	"sheets_obs_sync/internal/sheets"
	"sheets_obs_sync/internal/updater"
	"sheets_obs_sync/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type rootOptions struct {
	configFile string
	logLevel   string
	v          *viper.Viper
}

// flag name -> config key
var configFlags = map[string]string{
	"api-key":        "api_key",
	"spreadsheet-id": "spreadsheet_id",
	"tab":            "tab_name",
	"range":          "range",
	"interval":       "update_interval",
	"dimension":      "dimension",
	"obs":            "obs.enabled",
	"obs-host":       "obs.host",
	"obs-port":       "obs.port",
	"obs-password":   "obs.password",
	"obs-auth":       "obs.auth_enabled",
	"files":          "fs.enabled",
	"files-dir":      "fs.directory",
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Exiting")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: app.NewViper()}

	root := &cobra.Command{
		Use:           "sheets-obs-sync",
		Short:         "Push Google Sheets cell values into OBS Studio sources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupEnvironment(opts.logLevel)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "TOML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error); overrides LOGLEVEL")

	flags := root.PersistentFlags()
	flags.String("api-key", "", "Google Sheets API key")
	flags.String("spreadsheet-id", "", "Spreadsheet ID")
	flags.String("tab", "", "Tab (sheet) name")
	flags.String("range", "", "Range to poll (default "+app.DefaultRange+")")
	flags.Int("interval", 0, "Update interval in milliseconds (default 1500)")
	flags.String("dimension", "", "Major dimension, ROWS or COLUMNS (default ROWS)")
	flags.Bool("obs", true, "Push values to OBS")
	flags.String("obs-host", "", "OBS WebSocket host (default "+app.DefaultOBSHost+")")
	flags.Int("obs-port", 0, "OBS WebSocket port (default 4455)")
	flags.String("obs-password", "", "OBS WebSocket password")
	flags.Bool("obs-auth", false, "Authenticate with OBS (default: when a password is given)")
	flags.Bool("files", false, "Mirror mapped cells into text files")
	flags.String("files-dir", "", "Directory for mirrored cell files (default "+app.DefaultFilesDirectory+")")

	if err := bindFlags(opts.v, flags); err != nil {
		log.Fatal().Err(err).Msg("Failed to bind flags")
	}

	root.AddCommand(newRunCmd(opts), newBindingsCmd(opts), newValidateCmd(opts))
	return root
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range configFlags {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// loadConfig merges flags, environment and the config file, then validates.
func (o *rootOptions) loadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig(o.v, o.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var once, waitForOBS bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the spreadsheet and update OBS until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w, err := buildWorker(ctx, cfg)
			if err != nil {
				return err
			}
			if waitForOBS {
				w.WithResilience(config.InfiniteResilienceConfig)
			}

			if once {
				return w.RunOnce(ctx)
			}

			go func() {
				<-ctx.Done()
				w.Stop()
			}()

			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single update cycle and exit")
	cmd.Flags().BoolVar(&waitForOBS, "wait-for-obs", false, "Keep retrying until OBS accepts the connection")
	return cmd
}

func buildWorker(ctx context.Context, cfg *app.Config) (*worker.Worker, error) {
	client, err := sheets.NewClient(ctx, cfg.APIKey)
	if err != nil {
		return nil, err
	}
	fetcher := sheets.NewFetcher(client, cfg.SpreadsheetID, cfg.TabName, cfg.Range, cfg.DimensionValue())

	log.Info().
		Str("spreadsheet_id", cfg.SpreadsheetID).
		Str("range", sheets.ReadRange(cfg.TabName, cfg.Range)).
		Int("interval_ms", cfg.UpdateInterval).
		Bool("obs", cfg.OBS.Enabled).
		Bool("files", cfg.FS.Enabled).
		Msg("Configuration loaded")

	var connect worker.Connector
	if cfg.OBS.Enabled {
		host, port, password := cfg.OBS.Host, cfg.OBS.Port, cfg.OBS.Password
		connect = func(ctx context.Context) (worker.Session, error) {
			client, err := obs.Connect(ctx, host, port, password)
			if err != nil {
				return nil, err
			}
			return client, nil
		}
	}

	var writer worker.FileWriter
	if cfg.FS.Enabled {
		fw, err := files.NewWriter(cfg.FS.Directory, cfg.FS.Cells)
		if err != nil {
			return nil, err
		}
		writer = fw
	}

	return worker.New(*cfg, fetcher, connect, writer), nil
}

func newBindingsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "List OBS sources bound to spreadsheet cells",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			client, err := obs.Connect(cmd.Context(), cfg.OBS.Host, cfg.OBS.Port, cfg.OBS.Password)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			sources, err := client.Sources()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tCELL\tINPUT KIND")
			for _, b := range updater.Bindings(sources) {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", b.SourceName, cells.CellName(b.Row, b.Col), b.InputKind)
			}
			return tw.Flush()
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			r := cfg.Redacted()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "api_key         = %q\n", r.APIKey)
			fmt.Fprintf(out, "spreadsheet_id  = %q\n", r.SpreadsheetID)
			fmt.Fprintf(out, "tab_name        = %q\n", r.TabName)
			fmt.Fprintf(out, "range           = %q\n", r.Range)
			fmt.Fprintf(out, "update_interval = %d\n", r.UpdateInterval)
			fmt.Fprintf(out, "dimension       = %q\n", r.Dimension)
			fmt.Fprintf(out, "obs             = %t (%s:%d, auth %t, password %q)\n",
				r.OBS.Enabled, r.OBS.Host, r.OBS.Port, r.OBS.AuthEnabled, r.OBS.Password)
			fmt.Fprintf(out, "fs              = %t (%s, %d cells)\n", r.FS.Enabled, r.FS.Directory, len(r.FS.Cells))
			return nil
		},
	}
}
