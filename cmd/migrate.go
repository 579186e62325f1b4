package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate <up|down>",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(database.Up), string(database.Down)},
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := database.Direction(args[0])
		if dir != database.Up && dir != database.Down {
			return fmt.Errorf("unknown direction %q (must be up or down)", args[0])
		}

		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := database.Migrate(cfg.Database.URL("pgx5"), dir); err != nil {
			return err
		}
		logger.Info("migrations applied", "direction", dir)
		return nil
	},
}
