// Package domain contains persistence models for merchant accounts.
package domain

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// MerchantType categorizes the service a merchant sells. Water and milk vendors
// bill by supplied quantity; every other type is a flat recurring fee.
type MerchantType string

const (
	TypeInternet    MerchantType = "internet"
	TypeWater       MerchantType = "water"
	TypeMilk        MerchantType = "milk"
	TypeTV          MerchantType = "tv"
	TypeGym         MerchantType = "gym"
	TypeGarbage     MerchantType = "garbage"
	TypeHostel      MerchantType = "hostel"
	TypeAcademy     MerchantType = "academy"
	TypeLandlord    MerchantType = "landlord"
	TypeInstallment MerchantType = "installment"
)

// BillingUnit is the unit a merchant bills in.
type BillingUnit string

const (
	UnitMonth  BillingUnit = "month"
	UnitLiter  BillingUnit = "liter"
	UnitBottle BillingUnit = "bottle"
)

// Merchant is a vendor account.
type Merchant struct {
	ID                  string            `gorm:"primaryKey;type:varchar(40)" json:"id"`
	Code                string            `gorm:"uniqueIndex;type:varchar(10);not null" json:"code"`
	Name                string            `gorm:"type:varchar(100);not null" json:"name"`
	Type                MerchantType      `gorm:"type:varchar(20);not null" json:"type"`
	OwnerID             string            `gorm:"uniqueIndex;type:varchar(40);not null" json:"owner_id"`
	CommissionStructure datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"commission_structure"`
	Metadata            datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Merchant) TableName() string { return "merchants" }

// IsFixedFee reports whether the merchant bills a flat recurring price.
// Only water and milk vendors meter by supplied quantity.
func (m Merchant) IsFixedFee() bool {
	return m.Type != TypeWater && m.Type != TypeMilk
}

// BillingUnit returns the unit the merchant bills in, derived from its type.
func (m Merchant) BillingUnit() BillingUnit {
	switch m.Type {
	case TypeMilk:
		return UnitLiter
	case TypeWater:
		return UnitBottle
	default:
		return UnitMonth
	}
}

// FormatCode zero-pads a sequential merchant number into the external code.
func FormatCode(n int64) string {
	return fmt.Sprintf("%04d", n)
}
