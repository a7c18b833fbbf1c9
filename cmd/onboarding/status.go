package main

import (
	"errors"
	"fmt"

	"github.com/ad/persona-onboarding/internal/services"
	"github.com/ad/persona-onboarding/internal/store"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <persona-id>",
	Short: "Show a persona's onboarding checkpoint and step progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		a := newApp(cfg, s)
		overview, err := a.personas.Overview(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("persona %s not found", args[0])
		}
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), services.FormatOverview(overview))
		return nil
	},
}
