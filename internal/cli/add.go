package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/spf13/cobra"
)

var addContainer string

var addCmd = &cobra.Command{
	Use:   "add [files...]",
	Short: "Add content chunks from files",
	Long: `Add one chunk per file to the content store, optionally grouped
under a container so jobs can target them as a set.

Examples:
  reweave add notes.txt
  reweave add --container blog-post intro.txt body.txt outro.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVarP(&addContainer, "container", "c", "", "container to group the chunks under")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	for position, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		chunk, err := dbClient.CreateChunk(ctx, models.ChunkInput{
			Content:     string(content),
			ContainerID: addContainer,
			Position:    position,
		})
		if err != nil {
			return fmt.Errorf("create chunk for %s: %w", path, err)
		}

		fmt.Printf("%s  %s\n", models.MustRecordIDString(chunk.ID), path)
		if verbose {
			fmt.Printf("  %d bytes, container %q, position %d\n", len(content), addContainer, position)
		}
	}

	return nil
}
