package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"utgifter/internal/cli"
	"utgifter/internal/log"
	"utgifter/internal/services"
	"utgifter/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := cli.OpenStore(cmd.Context(), appConfig, appLogger)
			if err != nil {
				return err
			}
			return repo.Close()
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the starter categories if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := cli.OpenStore(cmd.Context(), appConfig, appLogger)
			if err != nil {
				return err
			}
			defer repo.Close()

			categories := services.NewCategoryService(repo, appLogger)
			if err := categories.Seed(cmd.Context(), appConfig.SeedCategories); err != nil {
				return err
			}
			appLogger.Info("Categories seeded",
				log.FieldOperation, log.OpSeed,
				log.FieldCount, len(appConfig.SeedCategories))
			return nil
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>",
		Short: "Print the category label the classifier picks for a description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var repo *storage.Repository
			if len(appConfig.ClassifierLabels) == 0 {
				// Labels come from the stored categories.
				r, err := cli.OpenStore(cmd.Context(), appConfig, appLogger)
				if err != nil {
					return err
				}
				defer r.Close()
				repo = r
			}

			cls, err := cli.NewClassifier(appConfig, repo, nil, appLogger)
			if err != nil {
				return err
			}
			label := cls.Classify(cmd.Context(), strings.Join(args, " "))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), label)
			return err
		},
	}
}
