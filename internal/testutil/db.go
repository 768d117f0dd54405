package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/psds-microservice/lottery-service/internal/config"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/model"
	"gorm.io/gorm"
)

var nameReplacer = strings.NewReplacer("/", "_", " ", "_", "#", "_")

// NewDB returns a migrated in-memory SQLite database private to t.
// A single connection keeps the memory database alive and serializes transactions.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1&_busy_timeout=5000", nameReplacer.Replace(t.Name()))
	db, err := database.Open(config.DriverSQLite, dsn, "silent")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func InsertSpot(t *testing.T, db *gorm.DB, id, name string, active bool) model.Spot {
	t.Helper()
	spot := model.Spot{ID: id, Name: name, IsActive: true}
	if err := db.Create(&spot).Error; err != nil {
		t.Fatalf("insert spot: %v", err)
	}
	if !active {
		if err := db.Model(&spot).Update("is_active", false).Error; err != nil {
			t.Fatalf("deactivate spot: %v", err)
		}
		spot.IsActive = false
	}
	return spot
}

func InsertTicket(t *testing.T, db *gorm.DB, serial, email, spotID string, status model.TicketStatus) model.Ticket {
	t.Helper()
	ticket := model.Ticket{
		SerialNumber: serial,
		UserID:       email,
		SpotID:       spotID,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}
	if status == model.TicketStatusRedeemed {
		now := time.Now().UTC()
		ticket.RedeemedAt = &now
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("insert ticket: %v", err)
	}
	return ticket
}

// DropClaimUniqueness removes the one-ticket-per-email index so tests can stage rows
// that only a bypassed claim path could produce.
func DropClaimUniqueness(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec("DROP INDEX IF EXISTS ux_lottery_tickets_user_id").Error; err != nil {
		t.Fatalf("drop index: %v", err)
	}
}

func CountTickets(t *testing.T, db *gorm.DB, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.Ticket{}).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count tickets: %v", err)
	}
	return n
}
