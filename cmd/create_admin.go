package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/service"
	"github.com/spf13/cobra"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account (existing usernames are left unchanged)",
	RunE:  runCreateAdmin,
}

var (
	adminUsername string
	adminPassword string
)

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "admin username")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if adminUsername == "" || adminPassword == "" {
		return errors.New("create-admin: --username and --password are required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Connect(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("create-admin: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	created, err := service.NewAuthService(db, clock.NewSystem(), cfg.Session.TTL).
		EnsureAdmin(cmd.Context(), adminUsername, adminPassword)
	if err != nil {
		return fmt.Errorf("create-admin: %w", err)
	}
	if created {
		log.Printf("create-admin: created %q", adminUsername)
	} else {
		log.Printf("create-admin: %q already exists, unchanged", adminUsername)
	}
	return nil
}
