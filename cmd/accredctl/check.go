package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"accreditation/internal/app"
	"accreditation/internal/catalog"
	"accreditation/internal/repository"
)

func newCheckCmd(opts *options) *cobra.Command {
	var useStore bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog's scoring tables and wizard layout.",
		Long: `Check loads the catalog, fills its criteria steps and reports every defect:
duplicate ids, empty steps or groups, scores above maxScore, unknown rule kinds.
With --stored the criteria come from MongoDB instead of the catalog file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()
			ctx := cmd.Context()

			var stored catalog.CriteriaSource
			if useStore {
				client, err := app.Connect(ctx, cfg.MongoURI)
				if err != nil {
					return err
				}
				defer client.Disconnect(ctx)
				stored = repository.NewCatalogRepo(client.Database(cfg.MongoDatabase))
			}

			cat, _, err := app.LoadCatalog(ctx, cfg.CatalogPath, stored, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := catalog.Validate(cat); err != nil {
				var cfgErr *catalog.ConfigurationError
				if errors.As(err, &cfgErr) {
					for _, p := range cfgErr.Problems {
						fmt.Fprintf(out, "  - %s\n", p)
					}
				}
				return fmt.Errorf("catalog check failed: %d problem(s)", problemCount(cfgErr))
			}

			fmt.Fprintf(out, "catalog %s ok\n", cat.Version)
			for _, rt := range cat.RequestTypes {
				fmt.Fprintf(out, "  %s: %d steps, %d indicators\n", rt.ID, len(rt.Steps), len(rt.Questions()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&useStore, "stored", false, "resolve criteria from MongoDB")
	return cmd
}

func problemCount(err *catalog.ConfigurationError) int {
	if err == nil {
		return 1
	}
	return len(err.Problems)
}
