package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rleer/rmq-cli-sub002/internal/mgmt"
)

func newPurgeCmd(a *app) *cobra.Command {
	var vhost string

	cmd := &cobra.Command{
		Use:   "purge QUEUE",
		Short: "Drop all ready messages from a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue := args[0]
			if vhost == "" {
				vhost = a.cfg.Management.VHost
			}

			client, err := mgmt.New(a.cfg.Management.URL, a.cfg.Management.User, a.cfg.Management.Password, a.log)
			if err != nil {
				return err
			}

			status, err := client.Queue(vhost, queue)
			if err != nil {
				return err
			}
			if err := client.Purge(vhost, queue); err != nil {
				return err
			}

			fmt.Fprintf(a.out, "purged %d message(s) from queue %q\n", status.Messages, queue)
			return nil
		},
	}

	cmd.Flags().StringVar(&vhost, "vhost", "", "virtual host (defaults to the configured one)")
	return cmd
}
