package main

import (
	"fmt"
	"log"

	"github.com/ad/persona-onboarding/internal/config"
	"github.com/ad/persona-onboarding/internal/db"
	"github.com/ad/persona-onboarding/internal/pgstore"
	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/ad/persona-onboarding/internal/wizard"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "onboarding",
	Short:        "Persona onboarding wizard",
	Long:         "Runs the 11-step persona onboarding wizard over HTTP or Telegram.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db-driver", "", "Storage driver: sqlite or postgres (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DB_PATH)")
	rootCmd.PersistentFlags().String("dsn", "", "Postgres connection string (overrides DATABASE_URL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(botCmd)
	rootCmd.AddCommand(statusCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}
	if v, _ := cmd.Flags().GetString("dsn"); v != "" {
		cfg.DatabaseURL = v
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case config.DriverPostgres:
		s, err := pgstore.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	default:
		s, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		log.Printf("[DB] Using SQLite database %s", cfg.DBPath)
		return s, nil
	}
}

// app holds the wiring shared by the HTTP and Telegram front ends.
type app struct {
	store       store.Store
	registry    *wizard.Registry
	submissions *services.SubmissionService
	sessions    *services.SessionManager
	personas    *services.PersonaService
}

func newApp(cfg *config.Config, s store.Store) *app {
	registry := wizard.MustDefaultRegistry()
	submissions := services.NewSubmissionService(s, registry, cfg.MaxUploadSize)
	reconciler := services.NewCheckpointReconciler(s, s, registry.Len())

	return &app{
		store:       s,
		registry:    registry,
		submissions: submissions,
		sessions:    services.NewSessionManager(registry, reconciler, submissions, cfg.MountTimeout),
		personas:    services.NewPersonaService(s, registry),
	}
}
