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
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/clock"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&merchantdomain.Merchant{},
		&membershipdomain.MerchantMembership{},
		&invoicedomain.Invoice{},
		&ledgerdomain.TransactionHistory{},
	))
	return db
}

type testEnv struct {
	db         *gorm.DB
	svc        *Service
	clock      *clock.FakeClock
	merchant   merchantdomain.Merchant
	membership membershipdomain.MerchantMembership
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: fake,
	}).(*Service)

	merchant := merchantdomain.Merchant{
		ID:      "mrc_1",
		Code:    "0100",
		Name:    "Clearwater Supplies",
		Type:    merchantdomain.TypeWater,
		OwnerID: "mbr_owner",
		CommissionStructure: datatypes.JSONMap{
			"cash": []any{
				map[string]any{"max_credit": float64(5000), "commission": 0.3},
			},
			"online": []any{
				map[string]any{"max_credit": float64(5000), "commission": 0.5},
			},
		},
		Metadata: datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&merchant).Error)

	membership := membershipdomain.MerchantMembership{
		ID:              "mms_1",
		Account:         "10000",
		MemberID:        "mbr_1",
		MerchantID:      merchant.ID,
		IsActive:        true,
		ActualPrice:     decimal.NewFromInt(500),
		DiscountedPrice: decimal.NewFromInt(500),
		Metadata:        datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&membership).Error)

	return &testEnv{db: db, svc: svc, clock: fake, merchant: merchant, membership: membership}
}

func (e *testEnv) seedInvoice(t *testing.T, code string, amount int64, createdAt time.Time) invoicedomain.Invoice {
	t.Helper()
	inv := invoicedomain.Invoice{
		ID:           "inv_" + code,
		Code:         code,
		MerchantID:   e.merchant.ID,
		MembershipID: e.membership.ID,
		MemberID:     e.membership.MemberID,
		Status:       invoicedomain.StatusUnpaid,
		Type:         invoicedomain.TypeMonthly,
		TotalAmount:  decimal.NewFromInt(amount),
		DueAmount:    decimal.NewFromInt(amount),
		DueDate:      createdAt.AddDate(0, 0, 15),
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	require.NoError(t, e.db.Create(&inv).Error)
	return inv
}

func TestRecordBalanceRecomputed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	debit, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionDebit,
		Value:           decimal.NewFromInt(500),
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	assert.True(t, debit.Balance.Equal(decimal.NewFromInt(-500)), "balance %s", debit.Balance)

	credit, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.NewFromInt(200),
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	assert.True(t, credit.Balance.Equal(decimal.NewFromInt(-300)), "balance %s", credit.Balance)

	adj, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionAdjustment,
		Value:           decimal.NewFromInt(100),
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	// credit - (debit - adjustment) = 200 - (500 - 100)
	assert.True(t, adj.Balance.Equal(decimal.NewFromInt(-200)), "balance %s", adj.Balance)

	totals, err := env.svc.BillingTotals(ctx, env.membership.ID)
	require.NoError(t, err)
	assert.True(t, totals.Balance().Equal(decimal.NewFromInt(-200)))
}

func TestRecordValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.Zero,
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidAmount)

	_, err = env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: "transfer",
		Value:           decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidType)

	_, err = env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    "mms_missing",
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidMembership)
}

func TestCommissionOnBillingCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 2000 within the 5000-ceiling tier: 2000 * 0.3 / 100 = 6.
	entry, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.NewFromInt(2000),
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	assert.True(t, entry.Commission.Equal(decimal.NewFromInt(6)), "commission %s", entry.Commission)

	// Online channel carries its own rate.
	online, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.NewFromInt(2000),
		IsOnline:        true,
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	assert.True(t, online.Commission.Equal(decimal.NewFromInt(10)), "commission %s", online.Commission)

	// Beyond every ceiling earns nothing.
	over, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.NewFromInt(6000),
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	assert.True(t, over.Commission.IsZero(), "commission %s", over.Commission)

	// Debits never earn commission.
	debit, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionDebit,
		Value:           decimal.NewFromInt(2000),
		Actor:           "mbr_staff",
	})
	require.NoError(t, err)
	assert.True(t, debit.Commission.IsZero())
}

func TestApplyPaymentAllocatesOldestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now()
	older := env.seedInvoice(t, "0100100000", 100, base.Add(-48*time.Hour))
	newer := env.seedInvoice(t, "0100100001", 200, base.Add(-24*time.Hour))

	entry, err := env.svc.ApplyPayment(ctx, ledgerdomain.ApplyPaymentRequest{
		MembershipID: env.membership.ID,
		Value:        decimal.NewFromInt(150),
		Actor:        "mbr_staff",
	})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.TransactionCredit, entry.TransactionType)

	var gotOlder invoicedomain.Invoice
	require.NoError(t, env.db.First(&gotOlder, "id = ?", older.ID).Error)
	assert.Equal(t, invoicedomain.StatusPaid, gotOlder.Status)
	assert.True(t, gotOlder.DueAmount.IsZero())

	var gotNewer invoicedomain.Invoice
	require.NoError(t, env.db.First(&gotNewer, "id = ?", newer.ID).Error)
	assert.Equal(t, invoicedomain.StatusUnpaid, gotNewer.Status)
	assert.True(t, gotNewer.DueAmount.Equal(decimal.NewFromInt(150)), "due %s", gotNewer.DueAmount)

	stored, err := env.svc.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Metadata[ledgerdomain.MetaPreviousState])
	assert.NotEmpty(t, stored.Metadata[ledgerdomain.MetaInvoices])
}

func TestApplyPaymentCoversEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now()
	first := env.seedInvoice(t, "0100100000", 100, base.Add(-48*time.Hour))
	second := env.seedInvoice(t, "0100100001", 200, base.Add(-24*time.Hour))

	_, err := env.svc.ApplyPayment(ctx, ledgerdomain.ApplyPaymentRequest{
		MembershipID: env.membership.ID,
		Value:        decimal.NewFromInt(350),
		Actor:        "mbr_staff",
	})
	require.NoError(t, err)

	for _, id := range []string{first.ID, second.ID} {
		var got invoicedomain.Invoice
		require.NoError(t, env.db.First(&got, "id = ?", id).Error)
		assert.Equal(t, invoicedomain.StatusPaid, got.Status)
		assert.True(t, got.DueAmount.IsZero())
	}

	// Overpayment stays on the ledger as positive balance.
	totals, err := env.svc.BillingTotals(ctx, env.membership.ID)
	require.NoError(t, err)
	assert.True(t, totals.Balance().Equal(decimal.NewFromInt(350)), "balance %s", totals.Balance())
}

func TestRevertRestoresSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := env.clock.Now()
	older := env.seedInvoice(t, "0100100000", 100, base.Add(-48*time.Hour))
	newer := env.seedInvoice(t, "0100100001", 200, base.Add(-24*time.Hour))

	entry, err := env.svc.ApplyPayment(ctx, ledgerdomain.ApplyPaymentRequest{
		MembershipID: env.membership.ID,
		Value:        decimal.NewFromInt(150),
		Actor:        "mbr_staff",
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.Revert(ctx, entry.ID))

	var gotOlder invoicedomain.Invoice
	require.NoError(t, env.db.First(&gotOlder, "id = ?", older.ID).Error)
	assert.Equal(t, invoicedomain.StatusUnpaid, gotOlder.Status)
	assert.True(t, gotOlder.DueAmount.Equal(decimal.NewFromInt(100)), "due %s", gotOlder.DueAmount)

	var gotNewer invoicedomain.Invoice
	require.NoError(t, env.db.First(&gotNewer, "id = ?", newer.ID).Error)
	assert.Equal(t, invoicedomain.StatusUnpaid, gotNewer.Status)
	assert.True(t, gotNewer.DueAmount.Equal(decimal.NewFromInt(200)), "due %s", gotNewer.DueAmount)

	_, err = env.svc.GetByID(ctx, entry.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrNotFound)

	totals, err := env.svc.BillingTotals(ctx, env.membership.ID)
	require.NoError(t, err)
	assert.True(t, totals.Credit.IsZero())
}

func TestRevertDetectsConcurrentEdit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inv := env.seedInvoice(t, "0100100000", 100, env.clock.Now().Add(-24*time.Hour))

	entry, err := env.svc.ApplyPayment(ctx, ledgerdomain.ApplyPaymentRequest{
		MembershipID: env.membership.ID,
		Value:        decimal.NewFromInt(40),
		Actor:        "mbr_staff",
	})
	require.NoError(t, err)

	// Someone else edits the invoice after the payment.
	env.clock.Advance(time.Minute)
	require.NoError(t, env.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"due_amount": decimal.NewFromInt(10),
			"updated_at": env.clock.Now(),
		}).Error)

	err = env.svc.Revert(ctx, entry.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrStateChanged)
}

func TestRevertSkipsCancelledInvoices(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inv := env.seedInvoice(t, "0100100000", 100, env.clock.Now().Add(-24*time.Hour))

	entry, err := env.svc.ApplyPayment(ctx, ledgerdomain.ApplyPaymentRequest{
		MembershipID: env.membership.ID,
		Value:        decimal.NewFromInt(100),
		Actor:        "mbr_staff",
	})
	require.NoError(t, err)

	env.clock.Advance(time.Minute)
	require.NoError(t, env.db.Model(&invoicedomain.Invoice{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"status":     invoicedomain.StatusCancelled,
			"updated_at": env.clock.Now(),
		}).Error)

	require.NoError(t, env.svc.Revert(ctx, entry.ID))

	var got invoicedomain.Invoice
	require.NoError(t, env.db.First(&got, "id = ?", inv.ID).Error)
	assert.Equal(t, invoicedomain.StatusCancelled, got.Status)
}

func TestRevertRejectsPlainEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	entry, err := env.svc.Record(ctx, ledgerdomain.RecordRequest{
		MembershipID:    env.membership.ID,
		TransactionType: ledgerdomain.TransactionCredit,
		Value:           decimal.NewFromInt(50),
	})
	require.NoError(t, err)

	err = env.svc.Revert(ctx, entry.ID)
	assert.ErrorIs(t, err, ledgerdomain.ErrNotRevertible)

	err = env.svc.Revert(ctx, "txn_missing")
	assert.ErrorIs(t, err, ledgerdomain.ErrNotFound)
}
