package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/reweave-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	graphMaxGeneration int
	graphOperation     string
)

var graphCmd = &cobra.Command{
	Use:   "graph <root-chunk-id>",
	Short: "Render the provenance graph for a root chunk",
	Long: `Render the node/edge provenance graph of every chunk derived from a
root, generation-ordered.

Examples:
  reweave graph 3f2a...
  reweave graph 3f2a... --max-generation 2
  reweave graph 3f2a... --operation persona`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().IntVar(&graphMaxGeneration, "max-generation", -1, "drop nodes deeper than this generation")
	graphCmd.Flags().StringVar(&graphOperation, "operation", "", "keep only nodes produced by this operation")
}

func runGraph(cmd *cobra.Command, args []string) error {
	graph, err := lineageService.BuildGraph(context.Background(), args[0], service.GraphOptions{
		MaxGeneration: graphMaxGeneration,
		Operation:     graphOperation,
	})
	if err != nil {
		return err
	}

	if len(graph.Nodes) == 0 {
		fmt.Println("No lineage recorded for this root")
		return nil
	}

	fmt.Printf("Provenance of %s (%d nodes, %d edges)\n\n", graph.RootChunkID, len(graph.Nodes), len(graph.Edges))

	// Parent lookup for indentation
	parents := make(map[string]string, len(graph.Edges)) // child lineage id -> parent lineage id
	labels := make(map[string]string, len(graph.Edges))
	for _, e := range graph.Edges {
		parents[e.ToLineageID] = e.FromLineageID
		labels[e.ToLineageID] = e.Label
	}

	for _, node := range graph.Nodes {
		indent := ""
		for p := parents[node.LineageID]; p != ""; p = parents[p] {
			indent += "  "
		}
		arrow := ""
		if label, ok := labels[node.LineageID]; ok {
			arrow = fmt.Sprintf("=[%s]=> ", label)
		}
		fmt.Printf("%s%s%s  gen %d  %q\n", indent, arrow, node.ChunkID, node.Generation, node.ContentPreview)
	}

	return nil
}
