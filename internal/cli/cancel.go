package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Request cancellation of a running job",
	Long: `Request cooperative cancellation. The worker observes the request
before starting its next item; records of already-processed items are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func runCancel(cmd *cobra.Command, args []string) error {
	if err := jobService.Cancel(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Job %s cancelled\n", args[0])
	return nil
}
