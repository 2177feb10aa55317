package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/models"
	"github.com/spf13/cobra"
)

var (
	jobsStatus string
	jobsType   string
	jobsLimit  int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect transformation jobs",
	Long: `List all jobs or inspect a specific job by ID.

Examples:
  reweave jobs                       # List recent jobs
  reweave jobs --status processing   # Filter by status
  reweave jobs abc123                # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status")
	jobsCmd.Flags().StringVar(&jobsType, "type", "", "filter by operation type")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "maximum jobs to list")
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if len(args) == 1 {
		return showJob(ctx, args[0])
	}

	return listJobs(ctx)
}

func listJobs(ctx context.Context) error {
	jobs, err := jobService.List(ctx, db.JobFilter{
		Status:  models.JobStatus(jobsStatus),
		JobType: jobsType,
		Limit:   jobsLimit,
	})
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-14s %-12s %-10s %-9s %s\n", "ID", "TYPE", "STATUS", "PROGRESS", "FAILED", "CREATED")
	fmt.Println("--------------------------------------------------------------------------")

	for _, job := range jobs {
		progress := fmt.Sprintf("%d/%d", job.ProcessedItems, job.TotalItems)
		created := job.CreatedAt.Format("Jan 02 15:04")
		fmt.Printf("%-10s %-14s %-12s %-10s %-9d %s\n",
			models.MustRecordIDString(job.ID), job.JobType, job.Status, progress, job.FailedItems, created)
	}

	return nil
}

func showJob(ctx context.Context, id string) error {
	job, err := jobService.Get(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Job: %s\n", models.MustRecordIDString(job.ID))
	fmt.Printf("  Type: %s\n", job.JobType)
	fmt.Printf("  Status: %s\n", job.Status)
	fmt.Printf("  Progress: %d/%d (%.0f%%)\n", job.ProcessedItems, job.TotalItems, job.ProgressPercentage)
	if job.FailedItems > 0 {
		fmt.Printf("  Failed items: %d\n", job.FailedItems)
	}
	if job.SessionID != "" {
		fmt.Printf("  Session: %s\n", job.SessionID)
	}
	if origin := job.ReappliedFrom(); origin != "" {
		fmt.Printf("  Reapplied from: %s\n", origin)
	}
	if verbose && len(job.Config) > 0 {
		fmt.Println("  Config:")
		for k, v := range job.Config {
			fmt.Printf("    %s: %v\n", k, v)
		}
	}
	fmt.Printf("  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("  Started: %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Printf("  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
		if job.StartedAt != nil {
			fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(*job.StartedAt).Round(time.Second))
		}
	}
	if job.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", job.ErrorMessage)
	}

	records, err := jobService.Records(ctx, id)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	if len(records) > 0 {
		fmt.Println("\nItems:")
		for _, rec := range records {
			if rec.Status == models.RecordStatusFailed {
				fmt.Printf("  #%-3d %s -> failed: %s\n", rec.SequenceNumber, rec.SourceChunkID, rec.Error)
				continue
			}
			fmt.Printf("  #%-3d %s -> %s (%dms", rec.SequenceNumber, rec.SourceChunkID, rec.ResultChunkID, rec.ProcessingTimeMs)
			if rec.TokensUsed > 0 {
				fmt.Printf(", %d tokens", rec.TokensUsed)
			}
			fmt.Println(")")
		}
	}

	return nil
}
