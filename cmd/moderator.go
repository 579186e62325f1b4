package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/auth"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/database"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/notify"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/repository"
	"github.com/Shivanand-hulikatti/kayak-tours/internal/service"
)

var (
	moderatorEmail    string
	moderatorPassword string
)

var moderatorCmd = &cobra.Command{
	Use:   "moderator",
	Short: "Manage moderator accounts",
}

var moderatorCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a confirmed moderator account if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := database.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		accounts := service.NewAccountService(
			repository.NewCustomerRepository(pool),
			auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, cfg.Auth.TokenTTL.Duration),
			notify.NewLogNotifier(logger),
			cfg.Auth.BcryptCost,
			cfg.PublicURL,
			logger,
		)
		c, created, err := accounts.EnsureModerator(ctx, moderatorEmail, moderatorPassword)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(cmd.OutOrStdout(), "created moderator %s (%s)\n", c.Email, c.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "moderator %s already exists (%s)\n", c.Email, c.ID)
		}
		return nil
	},
}

func init() {
	moderatorCreateCmd.Flags().StringVar(&moderatorEmail, "email", "", "moderator email (required)")
	moderatorCreateCmd.Flags().StringVar(&moderatorPassword, "password", "", "moderator password (required)")
	_ = moderatorCreateCmd.MarkFlagRequired("email")
	_ = moderatorCreateCmd.MarkFlagRequired("password")

	moderatorCmd.AddCommand(moderatorCreateCmd)
}
