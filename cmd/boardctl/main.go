// Command boardctl runs maintenance tasks against the board's stores.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/hungpv1995/community-board/internal/app"
	"github.com/hungpv1995/community-board/internal/config"
	"github.com/hungpv1995/community-board/internal/repository"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "boardctl",
		Short:         "Maintenance commands for the community board",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newReindexCmd())
	return root
}

// withApp loads configuration, connects and runs fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				return a.DB.Migrate()
			})
		},
	}
}

func newSeedCmd() *cobra.Command {
	var index bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert sample posts in every category",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				if err := a.DB.Migrate(); err != nil {
					return err
				}
				repo := repository.NewPostRepository(a.DB)
				if _, err := app.Seed(ctx, repo, app.Fixtures); err != nil {
					return err
				}
				if !index {
					return nil
				}
				if a.Search == nil {
					log.Println("Elasticsearch not available, skipping indexing")
					return nil
				}
				_, err := app.Reindex(ctx, repo, a.Search)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&index, "index", true, "also write the seeded posts to the search index")
	return cmd
}

func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				if a.Search == nil {
					return errors.New("elasticsearch is not configured or unreachable")
				}
				_, err := app.Reindex(ctx, repository.NewPostRepository(a.DB), a.Search)
				return err
			})
		},
	}
}
