package main

import (
	"github.com/braincreator/flow-masters/internal/agency/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load catalog, discount, template and achievement fixtures",
	Long: `Load fixtures from a YAML file. Rows keyed by slug or code are
updated in place. Users and templates that already exist are skipped.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "configs/seed.example.yaml", "Fixture file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := seed.Load(seedFile)
	if err != nil {
		return err
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	res, err := seed.New(db, logger).Apply(cmd.Context(), f)
	if err != nil {
		return err
	}
	logger.Info("Seed complete",
		zap.String("file", seedFile),
		zap.Int("users", res.Users),
		zap.Int("plans", res.Plans),
		zap.Int("services", res.Services),
		zap.Int("products", res.Products),
		zap.Int("discounts", res.Discounts),
		zap.Int("templates", res.Templates),
		zap.Int("achievements", res.Achievements))
	return nil
}
