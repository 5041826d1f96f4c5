package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "demand-copilot-api/configs"
	"demand-copilot-api/pkg/services"
	"demand-copilot-api/pkg/storage"
)

var logger = logrus.New()

func main() {
	if err := godotenv.Load(); err != nil {
		logger.WithError(err).Debug(".env file not loaded")
	}

	root := &cobra.Command{
		Use:   "copilot",
		Short: "Operations CLI for the demand co-pilot",
		Long:  "Seeds demo data, initializes the database schema and runs forecast cycles for the demand co-pilot API.",
	}
	root.AddCommand(newInitDBCmd(), newSeedCmd(), newTrainCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// connect opens the configured store. Commands that mutate Postgres
// require DATABASE_URL; the in-memory fallback would discard the work.
func connect(ctx context.Context, requireDB bool) (storage.Store, error) {
	cfg := config.LoadConfig()
	if cfg.DatabaseURL == "" {
		if requireDB {
			return nil, fmt.Errorf("DATABASE_URL is not set")
		}
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to Postgres: %w", err)
	}
	return store, nil
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := connect(ctx, true)
			if err != nil {
				return err
			}
			pg, ok := store.(*storage.PostgresStore)
			if !ok {
				return fmt.Errorf("init-db requires a Postgres store")
			}
			defer pg.Close()

			if err := pg.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("initializing schema: %w", err)
			}
			logger.Info("database schema ready")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	var months int
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the deterministic demo purchase history and catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			store, err := connect(ctx, true)
			if err != nil {
				return err
			}
			if pg, ok := store.(*storage.PostgresStore); ok {
				defer pg.Close()
				if err := pg.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("initializing schema: %w", err)
				}
			}

			count, err := services.NewSeedService(store, logger).Seed(ctx, months, seed)
			if err != nil {
				return err
			}
			logger.WithField("orders", count).Info("demo history loaded")
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", 12, "months of history to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the generated orders")
	return cmd
}

func newTrainCmd() *cobra.Command {
	var months int
	var seed int64
	var modelPath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Retrain the model and replace the forecast snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 120*time.Second)
			defer cancel()

			store, err := connect(ctx, true)
			if err != nil {
				return err
			}
			if pg, ok := store.(*storage.PostgresStore); ok {
				defer pg.Close()
			}

			result, err := services.NewPredictionService(store, logger).RunForecastCycle(ctx, months, seed, modelPath)
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"rows":       result.RowCount,
				"hospitals":  result.Hospitals,
				"products":   result.Products,
				"holdout_r2": result.Metrics.HoldoutR2,
				"confidence": result.Confidence,
			}).Info("forecast cycle complete")
			return nil
		},
	}
	cmd.Flags().IntVar(&months, "months", 3, "months ahead to forecast")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed for the train/holdout split")
	cmd.Flags().StringVar(&modelPath, "model", "modelo_demanda.json", "path to save the trained model (empty to skip)")
	return cmd
}
