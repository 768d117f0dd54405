package cmd

import (
	"fmt"
	"log"

	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/qrcode"
	"github.com/psds-microservice/lottery-service/internal/service"
	"github.com/spf13/cobra"
)

var seedSpotsCmd = &cobra.Command{
	Use:   "seed-spots",
	Short: "Create the default demo spots when no spot exists yet",
	RunE:  runSeedSpots,
}

func runSeedSpots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Connect(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("seed-spots: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	created, err := service.NewSpotService(db, clock.NewSystem()).SeedDefaultSpots(cmd.Context())
	if err != nil {
		return fmt.Errorf("seed-spots: %w", err)
	}
	if len(created) == 0 {
		log.Println("seed-spots: spots already exist, nothing to do")
		return nil
	}
	base := cfg.PublicBaseURL
	if base == "" {
		base = "http://localhost:" + cfg.HTTPPort
	}
	for _, spot := range created {
		log.Printf("seed-spots: %s %s -> %s", spot.ID, spot.Name, qrcode.BuildClaimURL(base, spot.ID))
	}
	return nil
}
