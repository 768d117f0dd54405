package model

import "time"

type TicketStatus string

const (
	TicketStatusIssued   TicketStatus = "issued"
	TicketStatusRedeemed TicketStatus = "redeemed"
)

// Spot is a location where a ticket can be claimed. ID is a 14-char alphanumeric code.
type Spot struct {
	ID          string    `gorm:"primaryKey;type:varchar(14)" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Spot) TableName() string { return "spots" }

// Ticket is one person's lottery eligibility, earned at one spot.
// UserID is the claimant's email and is unique across the table; at most one row per
// UserID may be redeemed (partial unique index).
type Ticket struct {
	ID           uint64       `gorm:"primaryKey" json:"id"`
	SerialNumber string       `gorm:"type:varchar(32);uniqueIndex:ux_lottery_tickets_serial_number;not null" json:"serial_number"`
	UserID       string       `gorm:"type:varchar(320);uniqueIndex:ux_lottery_tickets_user_id;index:ux_lottery_tickets_user_redeemed,unique,where:status = 'redeemed';not null" json:"user_id"`
	SpotID       string       `gorm:"type:varchar(14);index;not null" json:"spot_id"`
	Spot         *Spot        `gorm:"foreignKey:SpotID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Status       TicketStatus `gorm:"type:varchar(16);not null;default:issued;check:chk_lottery_tickets_status,status IN ('issued','redeemed')" json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
	RedeemedAt   *time.Time   `json:"redeemed_at"`
}

func (Ticket) TableName() string { return "lottery_tickets" }

// TicketView is a ticket joined with the name of its spot.
type TicketView struct {
	Ticket
	SpotName *string `json:"spot_name"`
}

type AdminUser struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AdminUser) TableName() string { return "admin_users" }

// AdminSession is a server-side login session. Only the SHA-256 of the cookie token is stored.
type AdminSession struct {
	TokenHash string     `gorm:"primaryKey;type:char(64)"`
	AdminID   uint64     `gorm:"index;not null"`
	Admin     *AdminUser `gorm:"foreignKey:AdminID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index;not null"`
}

func (AdminSession) TableName() string { return "admin_sessions" }
