// Package domain contains persistence models for daily supply records.
package domain

import (
	"context"
	"errors"
	"time"
)

// SupplyRecord tracks given/taken quantities for one membership on one calendar
// day. A second write for the same day overwrites rather than duplicates.
type SupplyRecord struct {
	ID           string    `gorm:"primaryKey;type:varchar(40)" json:"id"`
	MembershipID string    `gorm:"type:varchar(40);not null;index;uniqueIndex:ux_supply_membership_date,priority:1" json:"membership_id"`
	ForDate      string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_supply_membership_date,priority:2" json:"for_date"`
	Given        int       `gorm:"not null;default:0" json:"given"`
	Taken        int       `gorm:"not null;default:0" json:"taken"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SupplyRecord) TableName() string { return "supply_records" }

// DateLayout is the canonical day key for supply rows.
const DateLayout = "2006-01-02"

type RecordSupplyRequest struct {
	MembershipID string
	Given        int
	Taken        int
	ForDate      time.Time // zero value means today
}

type Service interface {
	Record(context.Context, RecordSupplyRequest) (SupplyRecord, error)
	ListByMembership(ctx context.Context, membershipID string) ([]SupplyRecord, error)
	// TotalGivenInMonth sums Given over the membership's records within the month.
	TotalGivenInMonth(ctx context.Context, membershipID string, year int, month int) (int, error)
	// SupplyBalance returns total taken minus total given across all records.
	SupplyBalance(ctx context.Context, membershipID string) (int, error)
}

var (
	ErrInvalidMembership = errors.New("invalid_membership")
	ErrNegativeQuantity  = errors.New("negative_quantity")
)
