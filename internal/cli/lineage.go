package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/spf13/cobra"
)

var lineageCmd = &cobra.Command{
	Use:   "lineage <chunk-id>",
	Short: "Show a chunk's ancestry and descendants",
	Args:  cobra.ExactArgs(1),
	RunE:  runLineage,
}

func runLineage(cmd *cobra.Command, args []string) error {
	lineage, err := lineageService.Lineage(context.Background(), args[0])
	if err != nil {
		return err
	}

	n := lineage.Node
	fmt.Printf("Chunk: %s\n", n.ChunkID)
	fmt.Printf("  Root: %s\n", n.RootChunkID)
	fmt.Printf("  Generation: %d (tree depth %d)\n", n.Generation, lineage.Generations)
	if len(n.TransformationPath) > 0 {
		fmt.Printf("  Path: %s\n", strings.Join(n.TransformationPath, " -> "))
	}
	fmt.Printf("  Transformations: %d", n.TotalTransformations)
	if n.TotalTokensUsed > 0 {
		fmt.Printf(" (%d tokens)", n.TotalTokensUsed)
	}
	fmt.Println()
	if len(n.JobIDs) > 0 {
		fmt.Printf("  Jobs: %s\n", strings.Join(n.JobIDs, ", "))
	}
	if len(n.SessionIDs) > 0 {
		fmt.Printf("  Sessions: %s\n", strings.Join(n.SessionIDs, ", "))
	}

	if len(lineage.Ancestors) > 0 {
		fmt.Println("\nAncestors:")
		for _, a := range lineage.Ancestors {
			printLineageLine(a)
		}
	}
	if len(lineage.Descendants) > 0 {
		fmt.Println("\nDescendants:")
		for _, d := range lineage.Descendants {
			printLineageLine(d)
		}
	}

	return nil
}

func printLineageLine(n models.LineageNode) {
	fmt.Printf("  gen %-3d %s (%s)\n", n.Generation, n.ChunkID, n.LastOperation())
}
