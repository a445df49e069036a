package cli

import (
	"github.com/spf13/cobra"
)

func newPeekCmd(a *app) *cobra.Command {
	f := retrievalFlags{policy: "requeue"}

	cmd := &cobra.Command{
		Use:   "peek QUEUE",
		Short: "Inspect messages without consuming them",
		Long: `Retrieve messages non-destructively: every message is rejected back onto the
queue and no positive acknowledgment is ever sent. Peek always polls with
basic.get.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRetrieval(cmd.Context(), args[0], f, true)
		},
	}

	f.register(cmd)
	return cmd
}
