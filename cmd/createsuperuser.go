/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/auth"
	"github.com/userhub/apiserver/internal/db"
	"github.com/userhub/apiserver/internal/logging"
	"github.com/userhub/apiserver/internal/mq"
	"github.com/userhub/apiserver/internal/services"
	"github.com/userhub/apiserver/internal/store"
)

var superuserInput services.RegisterInput

// createSuperuserCmd bootstraps an administrator account.
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an active superuser account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if superuserInput.Password == "" {
			return errors.New("--password is required")
		}

		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		queue, err := mq.Open(cmd.Context(), cfg.MQ)
		if err != nil {
			return err
		}
		if queue != nil {
			defer queue.Close()
		}

		svc := services.NewUserService(
			store.NewUserRepository(dbConn),
			auth.NewPasswordHasher(cfg.Auth.BcryptCost),
			services.NewAccountEvents(queue, cfg.MQ.Topic, logger),
			logger,
		)

		user, err := svc.CreateSuperuser(cmd.Context(), superuserInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "superuser %q created with id %d\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)
	createSuperuserCmd.Flags().StringVar(&superuserInput.Username, "username", "admin", "superuser login name")
	createSuperuserCmd.Flags().StringVar(&superuserInput.Email, "email", "admin@example.com", "superuser email address")
	createSuperuserCmd.Flags().StringVar(&superuserInput.Password, "password", "", "superuser password")
}
