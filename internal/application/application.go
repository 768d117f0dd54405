package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/config"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/handler"
	"github.com/psds-microservice/lottery-service/internal/kafka"
	"github.com/psds-microservice/lottery-service/internal/router"
	"github.com/psds-microservice/lottery-service/internal/service"
	"gorm.io/gorm"
)

// API is the HTTP application (api mode).
type API struct {
	cfg     *config.Config
	db      *gorm.DB
	events  *kafka.Producer
	httpSrv *http.Server
}

// NewAPI connects the store, provisions the bootstrap admin and assembles the router.
func NewAPI(ctx context.Context, cfg *config.Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	clk := clock.NewSystem()
	auth := service.NewAuthService(db, clk, cfg.Session.TTL)
	if cfg.AdminUsername != "" {
		created, err := auth.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if created {
			log.Printf("application: created admin %q", cfg.AdminUsername)
		}
	}
	spots := service.NewSpotService(db, clk)
	tickets := service.NewTicketService(db, clk)

	events := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	if events.Enabled() {
		log.Printf("application: publishing events to %s on %v", cfg.KafkaTopicTicket, cfg.KafkaBrokers)
	}

	h := router.New(router.Deps{
		Health:       handler.NewHealthHandler(sqlDB),
		Tickets:      handler.NewTicketHandler(tickets, events),
		Spots:        handler.NewSpotHandler(spots, events, cfg.PublicBaseURL),
		Admin:        handler.NewAdminHandler(auth, handler.CookieConfig{Name: cfg.Session.CookieName, Secure: cfg.Session.Secure}),
		QRCode:       handler.NewQRCodeHandler(spots, cfg.PublicBaseURL),
		RequireAdmin: handler.RequireAdmin(auth, cfg.Session.CookieName),
		CORSOrigins:  cfg.CORSOrigins,
		Logger:       log.New(os.Stdout, "http: ", log.LstdFlags),
	})

	return &API{
		cfg:    cfg,
		db:     db,
		events: events,
		httpSrv: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	host := a.cfg.AppHost
	if host == "0.0.0.0" {
		host = "localhost"
	}
	base := "http://" + host + ":" + a.cfg.HTTPPort
	log.Printf("HTTP server listening on %s (store: %s)", a.httpSrv.Addr, a.cfg.DB.Driver)
	log.Printf("  Swagger UI:    %s/swagger", base)
	log.Printf("  Health:        %s/health", base)
	log.Printf("  Ready:         %s/ready", base)
	log.Printf("  Claim API:     %s/api/claim-ticket", base)

	errCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, failed := <-errCh:
		if failed {
			a.close()
			return fmt.Errorf("http: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := a.httpSrv.Shutdown(shutdownCtx)
	a.close()
	if err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (a *API) close() {
	if err := a.events.Close(); err != nil {
		log.Printf("kafka: close: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
