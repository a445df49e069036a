package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/rleer/rmq-cli-sub002/internal/broker"
	"github.com/rleer/rmq-cli-sub002/internal/publish"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		exchange    string
		routingKey  string
		count       int
		interval    time.Duration
		workers     int
		persistent  bool
		contentType string
		headerFlags []string
		body        string
		bodyFile    string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a message to an exchange",
		Long: `Publish a message body to an exchange, optionally many times over. The body
comes from --body, --file or stdin; the content type is detected from the
body unless --content-type overrides it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := readBody(body, bodyFile, cmd.InOrStdin())
			if err != nil {
				return err
			}

			headers, err := parseHeaders(headerFlags)
			if err != nil {
				return err
			}

			conn, err := broker.Dial(cmd.Context(), a.cfg.Broker.URI, a.log)
			if err != nil {
				return err
			}
			defer conn.Close()

			ch, err := conn.Channel(0)
			if err != nil {
				return err
			}

			p := &publish.Publisher{Channel: ch, Logger: a.log}
			sent, err := p.Burst(cmd.Context(), payload, publish.Options{
				Exchange:    exchange,
				RoutingKey:  routingKey,
				Count:       count,
				Interval:    interval,
				Workers:     workers,
				Persistent:  persistent,
				ContentType: contentType,
				Headers:     headers,
			})

			fmt.Fprintf(a.out, "published %d message(s) to %q with routing key %q\n", sent, exchange, routingKey)
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&exchange, "exchange", "e", "", "target exchange (empty = default exchange)")
	fs.StringVarP(&routingKey, "key", "k", "", "routing key")
	fs.IntVarP(&count, "count", "n", 1, "number of copies to publish")
	fs.DurationVar(&interval, "interval", 0, "pause after each publish")
	fs.IntVar(&workers, "workers", 1, "parallel publishers")
	fs.BoolVar(&persistent, "persistent", false, "mark messages persistent")
	fs.StringVar(&contentType, "content-type", "", "override the detected content type")
	fs.StringArrayVarP(&headerFlags, "header", "H", nil, "custom header as key=value; repeatable")
	fs.StringVarP(&body, "body", "b", "", "message body")
	fs.StringVarP(&bodyFile, "file", "f", "", "read the message body from this file")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// readBody resolves the message body from the flag, a file or stdin, in
// that order of preference.
func readBody(body, bodyFile string, stdin io.Reader) ([]byte, error) {
	switch {
	case body != "" && bodyFile != "":
		return nil, fmt.Errorf("--body and --file are mutually exclusive")
	case body != "":
		return []byte(body), nil
	case bodyFile != "":
		b, err := os.ReadFile(bodyFile)
		if err != nil {
			return nil, fmt.Errorf("read body file: %w", err)
		}
		return b, nil
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read body from stdin: %w", err)
		}
		return b, nil
	}
}

// parseHeaders turns repeated key=value flags into an AMQP header table.
func parseHeaders(flags []string) (amqp091.Table, error) {
	if len(flags) == 0 {
		return nil, nil
	}

	headers := make(amqp091.Table, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("malformed header %q (want key=value)", f)
		}
		headers[k] = v
	}
	return headers, nil
}
