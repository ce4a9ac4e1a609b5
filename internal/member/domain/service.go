package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// MembershipDetails carries the onboarding fields for a customer's membership.
type MembershipDetails struct {
	MerchantID      string
	Area            string
	City            string
	Address         string
	SecondaryPhone  string
	IsMonthly       bool
	ActualPrice     decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// NewStaffMember registers a person as staff of one merchant. The shape of the
// request decides the roles; callers never pass free-form role strings.
type NewStaffMember struct {
	Name         string
	CNIC         string
	PrimaryPhone string
	MerchantID   string
}

// NewCustomerMember registers a person as a customer and onboards their
// membership in the same operation.
type NewCustomerMember struct {
	Name         string
	CNIC         string
	PrimaryPhone string
	Membership   MembershipDetails
}

type Service interface {
	CreateStaff(context.Context, NewStaffMember) (MerchantMember, error)
	// CreateCustomer registers the member (or reuses an existing one matched by
	// phone) and creates the merchant membership atomically.
	CreateCustomer(context.Context, NewCustomerMember) (MerchantMember, error)
	GetByID(ctx context.Context, memberID string) (MerchantMember, error)
	GetByPhone(ctx context.Context, phone string) (MerchantMember, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]MerchantMember, error)
	UpdatePicture(ctx context.Context, memberID, pictureURL string) (MerchantMember, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidPhone    = errors.New("invalid_phone")
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrPhoneExists     = errors.New("phone_exists")
	ErrNotFound        = errors.New("member_not_found")
)
