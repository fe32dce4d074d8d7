package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"accreditation/internal/app"
	"accreditation/internal/cache"
	"accreditation/internal/catalog"
	"accreditation/internal/repository"
)

func newSeedCmd(opts *options) *cobra.Command {
	var invalidate bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the catalog's areas, criteria and indicators to MongoDB.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			cat, err := catalog.Load(cfg.CatalogPath)
			if err != nil {
				return err
			}
			resolved, err := catalog.Resolve(ctx, cat, catalog.NewStaticSource(cat))
			if err != nil {
				return err
			}
			if err := catalog.Validate(resolved); err != nil {
				return fmt.Errorf("refusing to seed an invalid catalog: %w", err)
			}

			client, err := app.Connect(ctx, cfg.MongoURI)
			if err != nil {
				return err
			}
			defer client.Disconnect(ctx)

			repo := repository.NewCatalogRepo(client.Database(cfg.MongoDatabase))
			if err := repo.Seed(ctx, cat.Areas); err != nil {
				return err
			}

			indicators := 0
			for _, a := range cat.Areas {
				for _, g := range a.Criteria {
					indicators += len(g.Questions)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d areas, %d indicators into %s\n", len(cat.Areas), indicators, cfg.MongoDatabase)

			if invalidate {
				rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
				defer rdb.Close()
				if err := cache.NewCriteriaCache(rdb, repo, logger).Invalidate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "criteria cache cleared")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&invalidate, "invalidate-cache", true, "clear the Redis criteria cache after seeding")
	return cmd
}
