package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/iliamunaev/coordination-core/internal/app"
	"github.com/iliamunaev/coordination-core/internal/counter"
	"github.com/iliamunaev/coordination-core/internal/log"
)

var ErrLogHandlerFailed = errors.New("log handler failed")

const (
	shortDesc = "Exercise the coordination primitives concurrently."
	longDesc  = `Runs a set of workers that share a counter, a mutex-guarded total,
a read-write locked settings value and a bounded semaphore section, meet at
a barrier after every phase, and stream events over a channel while a
producer and consumer hand values through a rendezvous channel.

The run fails if any coordination property is violated.`
)

type rootArgs struct {
	cfg      app.Config
	ordering string

	logLevel  string
	logFormat string

	blockProfile string
	mutexProfile string
}

// NewRootCmd returns the playground command.
func NewRootCmd() *cobra.Command {
	args := &rootArgs{}

	cmd := &cobra.Command{
		Use:           "playground",
		Short:         shortDesc,
		Long:          longDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()
	f.IntVar(&args.cfg.Workers, "workers", 4, "Number of workers and barrier parties")
	f.IntVar(&args.cfg.Increments, "increments", 1000, "Counter increments per worker per phase")
	f.Int64Var(&args.cfg.Step, "step", 1, "Amount added per increment")
	f.IntVar(&args.cfg.Phases, "phases", 3, "Barrier-separated phases")
	f.StringVar(&args.ordering, "ordering", counter.Sequential.String(), "Counter ordering (sequential, relaxed)")
	f.IntVar(&args.cfg.Permits, "permits", 2, "Semaphore capacity")
	f.IntVar(&args.cfg.Handoffs, "handoffs", 10, "Values passed through the rendezvous channel")
	f.DurationVar(&args.cfg.Hold, "hold", 0, "Time spent inside each guarded section")
	f.DurationVar(&args.cfg.Timeout, "timeout", 10*time.Second, "Deadline for the whole run")

	cmd.PersistentFlags().StringVar(&args.logLevel, "log_level", "info", "Set the log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&args.logFormat, "log_format", log.TextFormat,
		fmt.Sprintf("Set the log format (%s)", strings.Join(log.Formats, ", ")))
	cmd.PersistentFlags().StringVar(&args.blockProfile, "blockprofile", "", "Write a block profile to this file")
	cmd.PersistentFlags().StringVar(&args.mutexProfile, "mutexprofile", "", "Write a mutex profile to this file")

	cmd.PersistentPreRunE = func(cc *cobra.Command, _ []string) error {
		h, err := log.CreateHandler(cc.ErrOrStderr(), args.logLevel, args.logFormat)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrLogHandlerFailed, err)
		}
		slog.SetDefault(slog.New(h))

		if args.blockProfile != "" {
			runtime.SetBlockProfileRate(1)
		}
		if args.mutexProfile != "" {
			runtime.SetMutexProfileFraction(1)
		}
		return nil
	}

	cmd.RunE = func(cc *cobra.Command, _ []string) (err error) {
		// Profiles are written for failed runs too.
		defer func() {
			err = multierror.Append(err,
				writeProfile("block", args.blockProfile),
				writeProfile("mutex", args.mutexProfile),
			).ErrorOrNil()
		}()

		o, err := counter.ParseOrdering(args.ordering)
		if err != nil {
			return err
		}
		args.cfg.Ordering = o

		s, runErr := app.Run(cc.Context(), args.cfg, slog.Default())
		printSummary(cc, s)
		return runErr
	}

	return cmd
}

func printSummary(cc *cobra.Command, s app.Summary) {
	out := cc.OutOrStdout()
	fmt.Fprintf(out, "run:         %s\n", s.Report.RunID)
	fmt.Fprintf(out, "ordering:    %s\n", s.Ordering)
	fmt.Fprintf(out, "counter:     %d (want %d)\n", s.Counter, s.ExpectedCounter)
	fmt.Fprintf(out, "mutex total: %d, peak holders %d\n", s.MutexTotal, s.MutexPeak)
	fmt.Fprintf(out, "semaphore:   peak holders %d of %d\n", s.PermitPeak, s.Permits)
	fmt.Fprintf(out, "events:      %d (want %d)\n", s.Events, s.ExpectedEvents)
	fmt.Fprintf(out, "handoffs:    %d (want %d)\n", s.Handoffs, s.ExpectedHandoffs)
	fmt.Fprintf(out, "generations: %d\n", s.Generations)
	for _, r := range s.Report.Failed() {
		fmt.Fprintf(out, "failed:      %s %s %v\n", r.Name, r.Status, r.Err)
	}
}

func writeProfile(name, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s profile: %w", name, err)
	}
	defer f.Close()

	if err := pprof.Lookup(name).WriteTo(f, 0); err != nil {
		return fmt.Errorf("failed to write %s profile: %w", name, err)
	}
	return nil
}
