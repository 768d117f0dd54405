package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/psds-microservice/lottery-service/internal/clock"
	"github.com/psds-microservice/lottery-service/internal/database"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const passwordCost = 10

// dummyHash is compared against when the username is unknown, so both failure paths
// spend one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), passwordCost)
	if err != nil {
		panic(err)
	}
	return h
})

type AuthServicer interface {
	Login(ctx context.Context, username, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*AdminIdentity, error)
	Logout(ctx context.Context, token string) error
}

type AdminIdentity struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

// Session is a freshly issued login. Token is only ever returned here; the store keeps its hash.
type Session struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Admin     AdminIdentity
}

type AuthService struct {
	db    *gorm.DB
	clock clock.Clock
	ttl   time.Duration
}

func NewAuthService(db *gorm.DB, clk clock.Clock, ttl time.Duration) *AuthService {
	return &AuthService{db: db, clock: clk, ttl: ttl}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, errs.ErrMissingCredential
	}
	var admin model.AdminUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, errs.ErrUnauthorized
	}

	now := s.clock.Now()
	if err := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.AdminSession{}).Error; err != nil {
		return nil, fmt.Errorf("purge sessions: %w", err)
	}
	token := uuid.NewString()
	row := model.AdminSession{
		TokenHash: hashToken(token),
		AdminID:   admin.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Session{
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: row.ExpiresAt,
		Admin:     AdminIdentity{ID: admin.ID, Username: admin.Username},
	}, nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*AdminIdentity, error) {
	if token == "" {
		return nil, errs.ErrUnauthenticated
	}
	var row model.AdminSession
	err := s.db.WithContext(ctx).
		Preload("Admin").
		Where("token_hash = ? AND expires_at > ?", hashToken(token), s.clock.Now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if row.Admin == nil {
		return nil, errs.ErrUnauthenticated
	}
	return &AdminIdentity{ID: row.Admin.ID, Username: row.Admin.Username}, nil
}

// Logout forgets the session. Unknown and empty tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Where("token_hash = ?", hashToken(token)).Delete(&model.AdminSession{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// EnsureAdmin creates the account unless the username is already taken.
// An existing account keeps its password.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, errs.ErrMissingCredential
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.AdminUser{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return false, fmt.Errorf("find admin: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := model.AdminUser{Username: username, PasswordHash: string(hash), CreatedAt: s.clock.Now()}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		if database.IsUniqueViolation(err, "") {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}
