// Package domain contains persistence models for merchant memberships, the
// billing subject joining a member to a merchant as a customer.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MerchantMembership joins a member to a merchant as a customer. Never hard
// deleted; IsActive carries the soft state.
type MerchantMembership struct {
	ID              string            `gorm:"primaryKey;type:varchar(40)" json:"id"`
	Account         string            `gorm:"uniqueIndex;type:varchar(10);not null" json:"account"`
	MemberID        string            `gorm:"type:varchar(40);not null;index;uniqueIndex:ux_memberships_member_merchant,priority:1" json:"member_id"`
	MerchantID      string            `gorm:"type:varchar(40);not null;index;uniqueIndex:ux_memberships_member_merchant,priority:2" json:"merchant_id"`
	Area            string            `gorm:"type:varchar(50)" json:"area,omitempty"`
	City            string            `gorm:"type:varchar(50)" json:"city,omitempty"`
	Address         string            `gorm:"type:text" json:"address,omitempty"`
	SecondaryPhone  string            `gorm:"type:varchar(15)" json:"secondary_phone,omitempty"`
	// No column default: gorm skips zero-value fields that carry one, which
	// would silently store an inactive row as active.
	IsActive        bool              `gorm:"not null" json:"is_active"`
	IsMonthly       bool              `gorm:"not null;default:false" json:"is_monthly"`
	ActualPrice     decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"actual_price"`
	DiscountedPrice decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"discounted_price"`
	TotalSaved      decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"total_saved"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MerchantMembership) TableName() string { return "merchant_memberships" }
