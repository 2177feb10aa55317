package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/raphaelgruber/reweave-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	reapplyChunks     []string
	reapplyContainers []string
)

var reapplyCmd = &cobra.Command{
	Use:   "reapply <job-id>",
	Short: "Clone a job's operation onto a new target",
	Long: `Create a new pending job reusing an existing job's operation type and
configuration verbatim, rebound to new sources. The original job and its
transformation history are left untouched.

Examples:
  reweave reapply abc123 --container other-post
  reweave reapply abc123 --chunk 3f2a...`,
	Args: cobra.ExactArgs(1),
	RunE: runReapply,
}

func init() {
	reapplyCmd.Flags().StringArrayVar(&reapplyChunks, "chunk", nil, "target chunk ID (repeatable)")
	reapplyCmd.Flags().StringArrayVar(&reapplyContainers, "container", nil, "target container (repeatable)")
}

func runReapply(cmd *cobra.Command, args []string) error {
	job, err := jobService.Reapply(context.Background(), args[0], service.ReapplyTarget{
		ChunkIDs:     reapplyChunks,
		ContainerIDs: reapplyContainers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Job %s created from %s (%d items, %s)\n",
		models.MustRecordIDString(job.ID), args[0], job.TotalItems, job.Status)
	return nil
}
