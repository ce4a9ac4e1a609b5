package domain

import (
	"context"
	"errors"

	"gorm.io/datatypes"
)

type CreateMerchantRequest struct {
	Name    string
	Type    MerchantType
	OwnerID string
}

type UpdateCommissionRequest struct {
	MerchantID          string
	CommissionStructure datatypes.JSONMap
}

type Service interface {
	Create(context.Context, CreateMerchantRequest) (Merchant, error)
	GetByID(ctx context.Context, id string) (Merchant, error)
	List(ctx context.Context) ([]Merchant, error)
	UpdateCommissionStructure(context.Context, UpdateCommissionRequest) (Merchant, error)
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidOwner     = errors.New("invalid_owner")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidStructure = errors.New("invalid_commission_structure")
	ErrNotFound         = errors.New("not_found")
)

// ValidType reports whether t is a known merchant type.
func ValidType(t MerchantType) bool {
	switch t {
	case TypeInternet, TypeWater, TypeMilk, TypeTV, TypeGym,
		TypeGarbage, TypeHostel, TypeAcademy, TypeLandlord, TypeInstallment:
		return true
	default:
		return false
	}
}
