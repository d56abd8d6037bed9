package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/mucoll/hitstats/internal/config"
	"github.com/mucoll/hitstats/internal/driver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// set at build time via ldflags
var (
	version   = "0.1.0"
	buildDate = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "hitstats [flags] FILE...",
		Short: "Accumulate hit timing and provenance statistics from simulated events",
		Long: `hitstats reads simulated detector events, hands every event to the
selected analysis drivers and writes the accumulated histograms,
profiles and n-tuples to the configured storage backend.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(opts.configDir); err != nil {
				return err
			}
			opts.inputs = args
			sum, err := run(cmd.Context(), *opts)
			if sum != nil {
				sum.print(cmd.OutOrStdout())
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringP("output", "o", "", "output file (memory and sqlite storage)")
	flags.IntVarP(&opts.maxEvents, "max_events", "m", 0, "stop after this many events (0 reads everything)")
	flags.IntVarP(&opts.skip, "skip_events", "s", 0, "events to skip before processing")
	flags.StringSliceVarP(&opts.drivers, "driver", "d", []string{"timing"},
		"drivers to run, in order: "+strings.Join(driver.Names(), ", "))
	flags.StringVarP(&opts.configDir, "config", "c", ".", "directory holding "+config.FileName)
	flags.IntVarP(&opts.jobs, "jobs", "j", 1, "input files processed in parallel")
	flags.String("log-level", "info", "debug, info, warn or error")

	_ = viper.BindPFlag("storage.output", flags.Lookup("output"))
	_ = viper.BindPFlag("logLevel", flags.Lookup("log-level"))

	cmd.AddCommand(newVersionCmd(), newDriversCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hitstats %s (built %s)\n", version, buildDate)
		},
	}
}

func newDriversCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the available drivers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, name := range driver.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
