package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/wrangler/internal/app"
)

// Execute runs the command line against args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Results go to outW, logs and
// usage errors to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	v := newViper()
	var cfgFile string

	root := &cobra.Command{
		Use:   "wrangler",
		Short: "Run and serve table wrangling workflows",
		Long: `wrangler runs declarative table wrangling workflows.

A workflow declares input tables, an ordered list of verb steps and named
outputs, in JSON, YAML or HCL. Steps without explicit inputs consume the
step before them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := readConfigFile(v, cfgFile); err != nil {
				return usageError(fmt.Errorf("failed to read config: %w", err))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./wrangler.yaml or ~/.config/wrangler/wrangler.yaml)")
	pf.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.Int("workers", 4, "Maximum number of async steps running at once.")
	pf.Duration("fetch-timeout", 30*time.Second, "HTTP timeout of the fetch verb.")
	bindFlags(v, pf)

	root.AddCommand(
		newRunCommand(v, outW, errW),
		newValidateCommand(v, outW, errW),
		newServeCommand(v, outW, errW),
		newWatchCommand(outW, errW),
	)
	return root
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

func newRunCommand(v *viper.Viper, outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Run a workflow once and print its outputs",
		Args:  exactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appConfig(v, args[0])
			if err != nil {
				return err
			}
			return app.NewApp(outW, errW, cfg).Run(cmd.Context())
		},
	}
	f := cmd.Flags()
	f.StringSlice("output", nil, "Print only these named outputs.")
	f.StringToString("input", nil, "Read input id from path, e.g. --input sales=data/sales.csv.")
	f.String("format", app.FormatText, "Output format. Options: 'text' or 'csv'.")
	f.Int("max-rows", 0, "Truncate text output to this many rows. 0 prints all.")
	f.String("sqlite", "", "Also write every printed output as a table of this SQLite database.")
	f.Duration("settle-timeout", 5*time.Minute, "How long to wait for async steps.")
	f.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	return cmd
}

func newValidateCommand(v *viper.Viper, outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Load and wire a workflow without waiting for results",
		Args:  exactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appConfig(v, args[0])
			if err != nil {
				return err
			}
			return app.NewApp(outW, errW, cfg).Validate(cmd.Context())
		},
	}
	cmd.Flags().StringToString("input", nil, "Read input id from path, e.g. --input sales=data/sales.csv.")
	return cmd
}

func newServeCommand(v *viper.Viper, outW, errW io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <workflow>",
		Short: "Serve a live workflow over socket.io",
		Long: `serve keeps the workflow live. Clients connect over socket.io on
/socket.io/, receive a "change" snapshot on connect and after every change,
and send "mutate" events to edit the workflow. /health answers OK.`,
		Args: exactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appConfig(v, args[0])
			if err != nil {
				return err
			}
			err = app.NewApp(outW, errW, cfg).Serve(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("listen", ":8080", "Address to serve on.")
	cmd.Flags().StringToString("input", nil, "Read input id from path, e.g. --input sales=data/sales.csv.")
	return cmd
}
