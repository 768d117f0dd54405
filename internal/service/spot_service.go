package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxSpotIDAttempts = 10

// SpotServicer is what the HTTP layer needs from the spot registry.
type SpotServicer interface {
	CreateSpot(ctx context.Context, name string) (*model.Spot, error)
	ListSpots(ctx context.Context) ([]model.Spot, error)
	GetSpot(ctx context.Context, id string) (*model.Spot, error)
	ResolveActiveSpot(ctx context.Context, id string) (*model.Spot, error)
	SetSpotActive(ctx context.Context, id string, active bool) (*model.Spot, error)
	DeleteSpot(ctx context.Context, id string) (*DeleteSpotResult, error)
}

type SpotService struct {
	db    *gorm.DB
	clock clock.Clock
	newID func() (string, error)
}

type SpotServiceOption func(*SpotService)

// WithSpotIDGenerator replaces the random identifier source.
func WithSpotIDGenerator(fn func() (string, error)) SpotServiceOption {
	return func(s *SpotService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewSpotService(db *gorm.DB, clk clock.Clock, opts ...SpotServiceOption) *SpotService {
	s := &SpotService{db: db, clock: clk, newID: NewSpotID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type DeleteSpotResult struct {
	Spot            model.Spot
	AffectedTickets int64
}

func (s *SpotService) CreateSpot(ctx context.Context, name string) (*model.Spot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errs.ErrSpotNameRequired
	}
	for attempt := 0; attempt < maxSpotIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		var taken int64
		if err := s.db.WithContext(ctx).Model(&model.Spot{}).Where("id = ?", id).Count(&taken).Error; err != nil {
			return nil, fmt.Errorf("check spot id: %w", err)
		}
		if taken > 0 {
			continue
		}
		spot := &model.Spot{ID: id, Name: name, IsActive: true, CreatedAt: s.clock.Now()}
		if err := s.db.WithContext(ctx).Create(spot).Error; err != nil {
			// lost a race for the same id
			if database.IsUniqueViolation(err, "") {
				continue
			}
			return nil, fmt.Errorf("create spot: %w", err)
		}
		return spot, nil
	}
	return nil, errs.ErrIdentifierExhausted
}

func (s *SpotService) ListSpots(ctx context.Context) ([]model.Spot, error) {
	var spots []model.Spot
	if err := s.db.WithContext(ctx).Order("id").Find(&spots).Error; err != nil {
		return nil, fmt.Errorf("list spots: %w", err)
	}
	return spots, nil
}

func (s *SpotService) GetSpot(ctx context.Context, id string) (*model.Spot, error) {
	return s.findSpot(ctx, "id = ?", id)
}

// ResolveActiveSpot hides inactive spots as if they did not exist.
func (s *SpotService) ResolveActiveSpot(ctx context.Context, id string) (*model.Spot, error) {
	return s.findSpot(ctx, "id = ? AND is_active = ?", id, true)
}

func (s *SpotService) findSpot(ctx context.Context, query string, args ...any) (*model.Spot, error) {
	var spot model.Spot
	if err := s.db.WithContext(ctx).Where(query, args...).First(&spot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrSpotNotFound
		}
		return nil, fmt.Errorf("get spot: %w", err)
	}
	return &spot, nil
}

func (s *SpotService) SetSpotActive(ctx context.Context, id string, active bool) (*model.Spot, error) {
	res := s.db.WithContext(ctx).Model(&model.Spot{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, fmt.Errorf("update spot: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.ErrSpotNotFound
	}
	return s.GetSpot(ctx, id)
}

// DeleteSpot removes the spot and every ticket earned there in one transaction.
func (s *SpotService) DeleteSpot(ctx context.Context, id string) (*DeleteSpotResult, error) {
	var out DeleteSpotResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&out.Spot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrSpotNotFound
			}
			return fmt.Errorf("lock spot: %w", err)
		}
		res := tx.Where("spot_id = ?", id).Delete(&model.Ticket{})
		if res.Error != nil {
			return fmt.Errorf("delete spot tickets: %w", res.Error)
		}
		out.AffectedTickets = res.RowsAffected
		if err := tx.Delete(&model.Spot{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("delete spot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

var DefaultSpotNames = []string{"神秘地點 A", "神秘地點 B", "神秘地點 C", "神秘地點 D", "神秘地點 E"}

// SeedDefaultSpots creates DefaultSpotNames when the registry is empty and returns
// what it created. A non-empty registry is left untouched.
func (s *SpotService) SeedDefaultSpots(ctx context.Context) ([]model.Spot, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.Spot{}).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("count spots: %w", err)
	}
	if n > 0 {
		return nil, nil
	}
	created := make([]model.Spot, 0, len(DefaultSpotNames))
	for _, name := range DefaultSpotNames {
		spot, err := s.CreateSpot(ctx, name)
		if err != nil {
			return created, err
		}
		created = append(created, *spot)
	}
	return created, nil
}
