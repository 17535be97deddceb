package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/karst-sim/karst/internal/app"
)

// newRootCmd wires the CLI. Logs go to logW; command output such as
// the DOT graph goes to outW so it stays pipeable.
func newRootCmd(logW, outW io.Writer) *cobra.Command {
	var (
		logFormat string
		logLevel  string
	)

	root := &cobra.Command{
		Use:          "karst",
		Short:        "scenario runner over a field dependency graph",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log output format: 'text' or 'json'")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: 'debug', 'info', 'warn', or 'error'")

	newApp := func(path string) (*app.App, error) {
		cfg, err := app.NewConfig(app.Config{
			ScenarioPath: path,
			LogFormat:    logFormat,
			LogLevel:     logLevel,
		})
		if err != nil {
			return nil, err
		}
		return app.New(logW, cfg), nil
	}

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario from start to stop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args[0])
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	graphCmd := &cobra.Command{
		Use:   "graph [scenario]",
		Short: "write the evaluator dependency graph in DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(args[0])
			if err != nil {
				return err
			}
			return a.Graph(cmd.Context(), outW)
		},
	}

	root.AddCommand(runCmd, graphCmd)
	return root
}

func main() {
	// Minimal logger until the app configures its own.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := newRootCmd(os.Stderr, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
