package main

import (
	"fmt"

	"github.com/flowscan/batchload/internal/store"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the tables of the entity store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			cfg.Store.Migrate = false

			entities, err := store.Open(cmd.Context(), cfg.Store, logger)
			if err != nil {
				return err
			}
			defer entities.Close()

			if err := entities.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed [fixture.yaml]",
		Short: "Load a YAML fixture into the entity store",
		Long: `Load a YAML fixture into the entity store, missing tables are created.

Examples:
  socialapi seed internal/api/testdata/seed.yaml
  socialapi seed fixtures.yaml --config prod.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			seed, err := store.LoadSeed(args[0])
			if err != nil {
				return err
			}

			cfg.Store.Migrate = true
			entities, err := store.Open(cmd.Context(), cfg.Store, logger)
			if err != nil {
				return err
			}
			defer entities.Close()

			if err := entities.Insert(cmd.Context(), seed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d users, %d posts, %d banners\n", len(seed.Users), len(seed.Posts), len(seed.Banners))
			return nil
		},
	}
}
