package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/raphaelgruber/reweave-go/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var (
	transformType       string
	transformChunks     []string
	transformContainers []string
	transformConfigFile string
	transformSet        []string
	transformSession    string
	transformPriority   int
	transformWatch      bool
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Create a transformation job",
	Long: `Create a batch job applying one operation to a set of chunks.
Sources may be explicit chunk IDs, containers, or both; duplicates are
resolved away before the job is frozen.

Operation parameters come from a YAML config file and/or --set overrides.

Examples:
  reweave transform --type persona --container blog-post --set persona="gruff sea captain"
  reweave transform --type detect --chunk 3f2a... --chunk 9c1b... --watch
  reweave transform --type format --container notes --config format.yaml`,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringVarP(&transformType, "type", "t", "", "operation type (required)")
	transformCmd.Flags().StringArrayVar(&transformChunks, "chunk", nil, "source chunk ID (repeatable)")
	transformCmd.Flags().StringArrayVar(&transformContainers, "container", nil, "source container (repeatable)")
	transformCmd.Flags().StringVar(&transformConfigFile, "config", "", "YAML file with operation parameters")
	transformCmd.Flags().StringArrayVar(&transformSet, "set", nil, "operation parameter override key=value (repeatable)")
	transformCmd.Flags().StringVar(&transformSession, "session", "", "owning session ID")
	transformCmd.Flags().IntVar(&transformPriority, "priority", 0, "scheduling priority (higher first)")
	transformCmd.Flags().BoolVarP(&transformWatch, "watch", "w", false, "watch job progress interactively")
	_ = transformCmd.MarkFlagRequired("type")
}

func runTransform(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	opConfig, err := loadOperationConfig(transformConfigFile, transformSet)
	if err != nil {
		return err
	}

	job, err := jobService.Create(ctx, service.CreateJobRequest{
		SessionID:    transformSession,
		JobType:      transformType,
		Config:       opConfig,
		Priority:     transformPriority,
		ChunkIDs:     transformChunks,
		ContainerIDs: transformContainers,
	})
	if err != nil {
		return err
	}

	jobID := models.MustRecordIDString(job.ID)
	fmt.Printf("Job %s created (%d items, %s)\n", jobID, job.TotalItems, job.Status)

	if transformWatch && term.IsTerminal(int(os.Stdout.Fd())) {
		return RunJobProgress(jobService, job)
	}

	fmt.Printf("Use 'reweave jobs %s' to check status.\n", jobID)
	return nil
}

// loadOperationConfig merges a YAML config file with --set overrides.
func loadOperationConfig(path string, overrides []string) (map[string]any, error) {
	opConfig := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &opConfig); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	for _, kv := range overrides {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set value %q (want key=value)", kv)
		}
		opConfig[key] = value
	}

	if len(opConfig) == 0 {
		return nil, nil
	}
	return opConfig, nil
}
