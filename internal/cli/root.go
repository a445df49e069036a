// Package cli defines the rmq command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rleer/rmq-cli-sub002/internal/config"
)

// app carries the state shared by all subcommands, resolved once before any
// of them runs.
type app struct {
	cfg config.Config
	log *slog.Logger
	out io.Writer

	configPath string
	uri        string
	verbose    bool
	noColor    bool
}

// NewRootCmd builds the rmq command tree.
func NewRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	cmd := &cobra.Command{
		Use:           "rmq",
		Short:         "Publish, retrieve and purge RabbitMQ queue messages",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.uri != "" {
				cfg.Broker.URI = a.uri
			}
			a.cfg = cfg

			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			if a.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to the TOML config file")
	pf.StringVar(&a.uri, "uri", "", "broker URI (overrides the config file)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		newConsumeCmd(a),
		newPeekCmd(a),
		newPublishCmd(a),
		newPurgeCmd(a),
	)
	return cmd
}

// Execute runs the command tree with an interrupt-bound context and returns
// the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "rmq:", err)
		return 1
	}
	return 0
}
