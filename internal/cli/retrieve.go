package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rleer/rmq-cli-sub002/internal/broker"
	"github.com/rleer/rmq-cli-sub002/internal/format"
	"github.com/rleer/rmq-cli-sub002/internal/output"
	"github.com/rleer/rmq-cli-sub002/internal/pipeline"
	"github.com/rleer/rmq-cli-sub002/internal/retrieve"
)

// retrievalFlags are the flags consume and peek share.
type retrievalFlags struct {
	count     int64
	policy    string
	poll      bool
	exclusive bool
	formatStr string
	compact   bool
	outPath   string
	perFile   int
	separator string
	prefetch  int
}

func (f *retrievalFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Int64VarP(&f.count, "count", "n", 0, "stop after this many messages (0 = until empty or interrupted)")
	fs.StringVar(&f.formatStr, "format", "plain", "message format: plain, json or table")
	fs.BoolVar(&f.compact, "compact", false, "single-line JSON output")
	fs.StringVarP(&f.outPath, "out", "o", "", "write messages to this file instead of the console")
	fs.IntVar(&f.perFile, "per-file", 0, "messages per output file before rotating")
	fs.StringVar(&f.separator, "separator", "", "separator written between messages")
	fs.IntVar(&f.prefetch, "prefetch", 0, "basic.qos prefetch count")
}

// runRetrieval dials the broker, builds one retrieval run from the flags
// and prints the final report.
func (a *app) runRetrieval(ctx context.Context, queue string, f retrievalFlags, peek bool) error {
	policy, err := pipeline.ParseAckPolicy(f.policy)
	if err != nil {
		return err
	}

	formatter, err := format.New(f.formatStr, f.compact)
	if err != nil {
		return err
	}

	separator := f.separator
	if separator == "" {
		separator = a.cfg.Output.Separator
	}

	sink, haltOnError := a.buildSink(f, separator)
	defer sink.Close()

	conn, err := broker.Dial(ctx, a.cfg.Broker.URI, a.log)
	if err != nil {
		return err
	}
	defer conn.Close()

	prefetch := f.prefetch
	if prefetch == 0 {
		prefetch = a.cfg.Broker.Prefetch
	}
	ch, err := conn.Channel(prefetch)
	if err != nil {
		return err
	}

	svc := &retrieve.Service{Inspector: conn, Channel: ch, Logger: a.log}
	opts := retrieve.Options{
		Queue:       queue,
		Limit:       f.count,
		Policy:      policy,
		Polling:     f.poll,
		Exclusive:   f.exclusive,
		Formatter:   formatter,
		Sink:        sink,
		HaltOnError: haltOnError,
	}

	var res retrieve.Result
	if peek {
		res, err = svc.Peek(ctx, opts)
	} else {
		res, err = svc.Consume(ctx, opts)
	}

	// the report is printed even for partial runs; the error still decides
	// the exit code.
	a.printReport(res)
	return err
}

// buildSink picks the output destination. Rotation only applies to file
// output, and only when the requested count is unbounded or exceeds the
// per-file threshold.
func (a *app) buildSink(f retrievalFlags, separator string) (pipeline.Sink, bool) {
	if f.outPath == "" {
		sink := output.NewConsoleSink(a.out, separator)
		if f.formatStr == "json" && f.compact {
			sink = sink.WithoutHeaders()
		}
		return sink, false
	}

	perFile := f.perFile
	if perFile == 0 {
		perFile = a.cfg.Output.MessagesPerFile
	}
	if f.count > 0 && f.count <= int64(perFile) {
		perFile = 0 // everything fits in one file
	}

	return output.NewFileSink(f.outPath, perFile, separator), true
}

func (a *app) printReport(res retrieve.Result) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(a.out, "\n%s\n", bold("run summary"))
	fmt.Fprintf(a.out, "  received   %d\n", res.Received)
	fmt.Fprintf(a.out, "  processed  %d\n", res.Processed)
	fmt.Fprintf(a.out, "  skipped & returned to broker  %d\n", res.Skipped())
	fmt.Fprintf(a.out, "  bytes      %d\n", res.Bytes)
	fmt.Fprintf(a.out, "  elapsed    %s (%.1f msg/s)\n", res.Elapsed.Round(time.Millisecond), res.Rate())
	if res.Cancelled {
		fmt.Fprintf(a.out, "  %s\n", color.YellowString("cancelled by user"))
	}
}
