package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type ToggleActiveRequest struct {
	MembershipID string
	IsActive     bool
}

type UpdatePricingRequest struct {
	MembershipID    string
	ActualPrice     decimal.Decimal
	DiscountedPrice decimal.Decimal
	IsMonthly       *bool
}

type Service interface {
	GetByID(ctx context.Context, membershipID string) (MerchantMembership, error)
	GetByMemberAndMerchant(ctx context.Context, memberID, merchantID string) (MerchantMembership, error)
	ListByMerchant(ctx context.Context, merchantID string, activeOnly bool) ([]MerchantMembership, error)
	ListByMember(ctx context.Context, memberID string) ([]MerchantMembership, error)
	ToggleActive(context.Context, ToggleActiveRequest) (MerchantMembership, error)
	UpdatePricing(context.Context, UpdatePricingRequest) (MerchantMembership, error)

	// InvoiceAmount computes what the membership owes for the given period:
	// the discounted price for fixed-fee or monthly memberships, otherwise
	// the quantity supplied during that period times the discounted price.
	InvoiceAmount(ctx context.Context, membership MerchantMembership, year int, month int) (decimal.Decimal, error)
}

var (
	ErrInvalidID           = errors.New("invalid_membership_id")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrDiscountBelowActual = errors.New("discounted_price_below_actual")
	ErrNotFound            = errors.New("membership_not_found")
	ErrDuplicate           = errors.New("membership_exists")
)
