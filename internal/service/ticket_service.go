package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxSerialAttempts = 3

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail checks the local@domain.tld shape only; no normalization is applied.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// TicketServicer is what the HTTP layer needs from the ticket lifecycle engine.
type TicketServicer interface {
	Claim(ctx context.Context, spotID, email string) (*ClaimResult, error)
	Query(ctx context.Context, email string, includeAll bool) (*QueryResult, error)
	Redeem(ctx context.Context, ticketID uint64) (*model.Ticket, error)
	ResetByEmail(ctx context.Context, email string) (int64, error)
	DeleteTicket(ctx context.Context, ticketID uint64) (*DeletedTicket, error)
}

type TicketService struct {
	db        *gorm.DB
	clock     clock.Clock
	newSerial func(time.Time) (string, error)
}

type TicketServiceOption func(*TicketService)

// WithSerialGenerator replaces the TH<millis><rand> serial source.
func WithSerialGenerator(fn func(time.Time) (string, error)) TicketServiceOption {
	return func(s *TicketService) {
		if fn != nil {
			s.newSerial = fn
		}
	}
}

func NewTicketService(db *gorm.DB, clk clock.Clock, opts ...TicketServiceOption) *TicketService {
	s := &TicketService{db: db, clock: clk, newSerial: NewSerialNumber}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ClaimResult struct {
	Ticket   model.Ticket
	SpotName string
}

// QueryResult holds the tickets of one email. Redeemed is only filled when issued
// tickets were requested and none exist, so callers can explain "already redeemed".
type QueryResult struct {
	Tickets  []model.TicketView
	Redeemed []model.TicketView
	ShowAll  bool
}

type DeletedTicket struct {
	ID           uint64             `json:"id"`
	SerialNumber string             `json:"serial_number"`
	UserID       string             `json:"user_id"`
	SpotID       string             `json:"spot_id"`
	Status       model.TicketStatus `json:"status"`
}

// Claim issues the single ticket an email may ever hold. The check and the insert share
// one transaction; UNIQUE(user_id) rejects a concurrent second writer.
func (s *TicketService) Claim(ctx context.Context, spotID, email string) (*ClaimResult, error) {
	if spotID == "" || email == "" {
		return nil, errs.ErrMissingFields
	}
	if !ValidEmail(email) {
		return nil, errs.ErrInvalidEmail
	}
	for attempt := 0; attempt < maxSerialAttempts; attempt++ {
		res, err := s.claimOnce(ctx, spotID, email)
		switch {
		case err == nil:
			return res, nil
		case database.IsUniqueViolation(err, "serial_number"):
			continue
		case database.IsUniqueViolation(err, ""):
			return nil, s.priorClaimError(ctx, email)
		default:
			return nil, err
		}
	}
	return nil, errs.ErrSerialCollision
}

func (s *TicketService) claimOnce(ctx context.Context, spotID, email string) (*ClaimResult, error) {
	var out ClaimResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var spot model.Spot
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ? AND is_active = ?", spotID, true).
			First(&spot).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrInvalidSpot
			}
			return fmt.Errorf("lock spot: %w", err)
		}

		prior, err := findPriorClaim(tx, email)
		if err != nil {
			return err
		}
		if prior != nil {
			return prior
		}

		now := s.clock.Now()
		serial, err := s.newSerial(now)
		if err != nil {
			return err
		}
		out.Ticket = model.Ticket{
			SerialNumber: serial,
			UserID:       email,
			SpotID:       spot.ID,
			Status:       model.TicketStatusIssued,
			CreatedAt:    now,
		}
		if err := tx.Create(&out.Ticket).Error; err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		out.SpotName = spot.Name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// findPriorClaim returns an AlreadyClaimedError naming the spot of any existing ticket
// for email, or nil when there is none.
func findPriorClaim(db *gorm.DB, email string) (*errs.AlreadyClaimedError, error) {
	var rows []struct {
		SpotID   string
		SpotName *string
	}
	err := db.Table("lottery_tickets AS lt").
		Select("lt.spot_id, s.name AS spot_name").
		Joins("LEFT JOIN spots s ON s.id = lt.spot_id").
		Where("lt.user_id = ?", email).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find prior claim: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	name := rows[0].SpotID
	if rows[0].SpotName != nil {
		name = *rows[0].SpotName
	}
	return &errs.AlreadyClaimedError{SpotName: name}, nil
}

func (s *TicketService) priorClaimError(ctx context.Context, email string) error {
	prior, err := findPriorClaim(s.db.WithContext(ctx), email)
	if err != nil {
		return err
	}
	if prior == nil {
		return errs.ErrAlreadyClaimed
	}
	return prior
}

func (s *TicketService) Query(ctx context.Context, email string, includeAll bool) (*QueryResult, error) {
	if !ValidEmail(email) {
		return nil, errs.ErrInvalidEmail
	}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).
			Table("lottery_tickets AS lt").
			Select("lt.*, s.name AS spot_name").
			Joins("LEFT JOIN spots s ON s.id = lt.spot_id").
			Where("lt.user_id = ?", email)
	}

	out := &QueryResult{Tickets: []model.TicketView{}, ShowAll: includeAll}
	q := base()
	if !includeAll {
		q = q.Where("lt.status = ?", model.TicketStatusIssued)
	}
	if err := q.Order("lt.created_at DESC").Order("lt.id DESC").Find(&out.Tickets).Error; err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	if includeAll || len(out.Tickets) > 0 {
		return out, nil
	}

	out.Redeemed = []model.TicketView{}
	err := base().
		Where("lt.status = ?", model.TicketStatusRedeemed).
		Order("lt.redeemed_at DESC").
		Find(&out.Redeemed).Error
	if err != nil {
		return nil, fmt.Errorf("query redeemed tickets: %w", err)
	}
	return out, nil
}

// Redeem marks an issued ticket redeemed unless its owner already redeemed another one.
// All tickets of the owner are locked in id order so concurrent redemptions serialize
// without deadlocking.
func (s *TicketService) Redeem(ctx context.Context, ticketID uint64) (*model.Ticket, error) {
	var out model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var head model.Ticket
		if err := tx.Select("id", "user_id").Where("id = ?", ticketID).Take(&head).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrNotRedeemable
			}
			return fmt.Errorf("find ticket: %w", err)
		}

		var owned []model.Ticket
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", head.UserID).
			Order("id").
			Find(&owned).Error
		if err != nil {
			return fmt.Errorf("lock owner tickets: %w", err)
		}

		found := false
		for _, t := range owned {
			if t.ID == ticketID {
				out = t
				found = true
				continue
			}
			if t.Status == model.TicketStatusRedeemed {
				return errs.ErrAlreadyRedeemedElsewhere
			}
		}
		if !found || out.Status != model.TicketStatusIssued {
			return errs.ErrNotRedeemable
		}

		now := s.clock.Now()
		res := tx.Model(&model.Ticket{}).
			Where("id = ? AND status = ?", ticketID, model.TicketStatusIssued).
			Updates(map[string]any{"status": model.TicketStatusRedeemed, "redeemed_at": now})
		if res.Error != nil {
			if database.IsUniqueViolation(res.Error, "") {
				return errs.ErrAlreadyRedeemedElsewhere
			}
			return fmt.Errorf("redeem ticket: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.ErrNotRedeemable
		}
		out.Status = model.TicketStatusRedeemed
		out.RedeemedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetByEmail moves every redeemed ticket of email back to issued.
func (s *TicketService) ResetByEmail(ctx context.Context, email string) (int64, error) {
	if !ValidEmail(email) {
		return 0, errs.ErrInvalidEmail
	}
	var reset int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total int64
		if err := tx.Model(&model.Ticket{}).Where("user_id = ?", email).Count(&total).Error; err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		if total == 0 {
			return errs.ErrEmailNotFound
		}
		res := tx.Model(&model.Ticket{}).
			Where("user_id = ? AND status = ?", email, model.TicketStatusRedeemed).
			Updates(map[string]any{"status": model.TicketStatusIssued, "redeemed_at": nil})
		if res.Error != nil {
			return fmt.Errorf("reset tickets: %w", res.Error)
		}
		reset = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reset, nil
}

func (s *TicketService) DeleteTicket(ctx context.Context, ticketID uint64) (*DeletedTicket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", ticketID).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrTicketNotFound
			}
			return fmt.Errorf("lock ticket: %w", err)
		}
		if err := tx.Delete(&model.Ticket{}, "id = ?", t.ID).Error; err != nil {
			return fmt.Errorf("delete ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DeletedTicket{
		ID:           t.ID,
		SerialNumber: t.SerialNumber,
		UserID:       t.UserID,
		SpotID:       t.SpotID,
		Status:       t.Status,
	}, nil
}
