// Package cli provides the command-line interface for reweave.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/raphaelgruber/reweave-go/internal/config"
	"github.com/raphaelgruber/reweave-go/internal/db"
	"github.com/raphaelgruber/reweave-go/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	jobService     *service.JobService
	lineageService *service.LineageService
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reweave",
	Short: "Content transformation engine with provenance tracking",
	Long: `Reweave applies pluggable operations (persona rewrite, detection,
multi-perspective analysis, reformatting) to content chunks as batch jobs,
and records the full provenance tree of every transformation across
sessions and generations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		jobService = service.NewJobService(dbClient, nil)
		lineageService = service.NewLineageService(dbClient, nil)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(reapplyCmd)
	rootCmd.AddCommand(lineageCmd)
	rootCmd.AddCommand(graphCmd)
}
