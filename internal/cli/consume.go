package cli

import (
	"github.com/spf13/cobra"
)

func newConsumeCmd(a *app) *cobra.Command {
	var f retrievalFlags

	cmd := &cobra.Command{
		Use:   "consume QUEUE",
		Short: "Retrieve messages from a queue",
		Long: `Retrieve messages from a queue, write them to the console or to files and
acknowledge them according to --ack-policy. By default messages arrive over a
push subscription; --poll switches to discrete basic.get polling.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRetrieval(cmd.Context(), args[0], f, false)
		},
	}

	f.register(cmd)
	fs := cmd.Flags()
	fs.StringVar(&f.policy, "ack-policy", "ack", "outcome for processed messages: ack, reject or requeue")
	fs.BoolVar(&f.poll, "poll", false, "poll with basic.get instead of subscribing")
	fs.BoolVar(&f.exclusive, "exclusive", false, "request an exclusive consumer")

	return cmd
}
