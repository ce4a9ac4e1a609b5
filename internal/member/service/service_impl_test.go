package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/member/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/sequence"
)

var testDBSeq atomic.Int64

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:member_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.MerchantMember{},
		&domain.MemberRole{},
		&membershipdomain.MerchantMembership{},
		&sequence.Counter{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)),
	})
	return svc, db
}

func customerRequest(phone, merchantID string) domain.NewCustomerMember {
	return domain.NewCustomerMember{
		Name:         "Ayesha Khan",
		PrimaryPhone: phone,
		Membership: domain.MembershipDetails{
			MerchantID:      merchantID,
			Area:            "F-7",
			City:            "Islamabad",
			ActualPrice:     decimal.NewFromInt(1200),
			DiscountedPrice: decimal.NewFromInt(1500),
		},
	}
}

func TestCreateStaff(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.CreateStaff(ctx, domain.NewStaffMember{
		Name:         "Bilal Ahmed",
		PrimaryPhone: "+923001234567",
		MerchantID:   "mrc_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "1000", member.Code)
	assert.Equal(t, "mrc_1", member.MerchantID)
	assert.True(t, member.HasRole(domain.RoleStaff))
	assert.False(t, member.HasRole(domain.RoleCustomer))

	second, err := svc.CreateStaff(ctx, domain.NewStaffMember{
		Name:         "Sara Malik",
		PrimaryPhone: "+923007654321",
		MerchantID:   "mrc_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "1001", second.Code)
}

func TestCreateStaffRejectsDuplicatePhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, domain.NewStaffMember{
		Name: "Bilal Ahmed", PrimaryPhone: "+923001234567", MerchantID: "mrc_1",
	})
	require.NoError(t, err)

	_, err = svc.CreateStaff(ctx, domain.NewStaffMember{
		Name: "Someone Else", PrimaryPhone: "+923001234567", MerchantID: "mrc_2",
	})
	assert.ErrorIs(t, err, domain.ErrPhoneExists)
}

func TestCreateStaffValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, domain.NewStaffMember{PrimaryPhone: "+923001234567", MerchantID: "mrc_1"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.CreateStaff(ctx, domain.NewStaffMember{Name: "Bilal", MerchantID: "mrc_1"})
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)

	_, err = svc.CreateStaff(ctx, domain.NewStaffMember{Name: "Bilal", PrimaryPhone: "+923001234567"})
	assert.ErrorIs(t, err, domain.ErrInvalidMerchant)
}

func TestCreateCustomerOnboardsMembership(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	member, err := svc.CreateCustomer(ctx, customerRequest("+923005550001", "mrc_1"))
	require.NoError(t, err)
	assert.Equal(t, "1000", member.Code)
	assert.True(t, member.HasRole(domain.RoleCustomer))
	assert.Empty(t, member.MerchantID)

	var membership membershipdomain.MerchantMembership
	require.NoError(t, db.First(&membership, "member_id = ?", member.ID).Error)
	assert.Equal(t, "10000", membership.Account)
	assert.Equal(t, "mrc_1", membership.MerchantID)
	assert.True(t, membership.IsActive)
	assert.True(t, membership.DiscountedPrice.Equal(decimal.NewFromInt(1500)))
}

func TestCreateCustomerReusesExistingMember(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	staff, err := svc.CreateStaff(ctx, domain.NewStaffMember{
		Name: "Bilal Ahmed", PrimaryPhone: "+923005550001", MerchantID: "mrc_1",
	})
	require.NoError(t, err)

	// Same person signs up as a customer of another merchant.
	customer, err := svc.CreateCustomer(ctx, customerRequest("+923005550001", "mrc_2"))
	require.NoError(t, err)
	assert.Equal(t, staff.ID, customer.ID)
	assert.True(t, customer.HasRole(domain.RoleStaff))
	assert.True(t, customer.HasRole(domain.RoleCustomer))

	var memberCount int64
	require.NoError(t, db.Model(&domain.MerchantMember{}).Count(&memberCount).Error)
	assert.EqualValues(t, 1, memberCount)
}

func TestCreateCustomerRejectsDuplicateMembership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, customerRequest("+923005550001", "mrc_1"))
	require.NoError(t, err)

	_, err = svc.CreateCustomer(ctx, customerRequest("+923005550001", "mrc_1"))
	assert.ErrorIs(t, err, membershipdomain.ErrDuplicate)
}

func TestCreateCustomerPricingValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	req := customerRequest("+923005550001", "mrc_1")
	req.Membership.DiscountedPrice = decimal.NewFromInt(800)
	_, err := svc.CreateCustomer(ctx, req)
	assert.ErrorIs(t, err, membershipdomain.ErrDiscountBelowActual)

	req = customerRequest("+923005550002", "mrc_1")
	req.Membership.ActualPrice = decimal.NewFromInt(-1)
	_, err = svc.CreateCustomer(ctx, req)
	assert.ErrorIs(t, err, membershipdomain.ErrInvalidPrice)
}

func TestGetByPhone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, customerRequest("+923005550001", "mrc_1"))
	require.NoError(t, err)

	member, err := svc.GetByPhone(ctx, "+923005550001")
	require.NoError(t, err)
	assert.Equal(t, created.ID, member.ID)
	assert.True(t, member.HasRole(domain.RoleCustomer))

	_, err = svc.GetByPhone(ctx, "+920000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListByMerchantCoversStaffAndCustomers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateStaff(ctx, domain.NewStaffMember{
		Name: "Bilal Ahmed", PrimaryPhone: "+923005550001", MerchantID: "mrc_1",
	})
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, customerRequest("+923005550002", "mrc_1"))
	require.NoError(t, err)
	_, err = svc.CreateCustomer(ctx, customerRequest("+923005550003", "mrc_2"))
	require.NoError(t, err)

	members, err := svc.ListByMerchant(ctx, "mrc_1")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "1000", members[0].Code)
	assert.Equal(t, "1001", members[1].Code)
}
