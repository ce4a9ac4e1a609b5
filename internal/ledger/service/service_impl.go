package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/id"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ObsMetrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	obsMetrics *metrics.Metrics
}

func New(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Record(ctx context.Context, req ledgerdomain.RecordRequest) (ledgerdomain.TransactionHistory, error) {
	var entry ledgerdomain.TransactionHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		entry, err = s.RecordTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return ledgerdomain.TransactionHistory{}, err
	}
	return entry, nil
}

// RecordTx appends a ledger entry inside the caller's transaction. The
// membership row is locked first so concurrent writers cannot compute a stale
// balance; the stored balance is always recomputed from the full history.
func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, req ledgerdomain.RecordRequest) (ledgerdomain.TransactionHistory, error) {
	membershipID := strings.TrimSpace(req.MembershipID)
	if membershipID == "" {
		return ledgerdomain.TransactionHistory{}, ledgerdomain.ErrInvalidMembership
	}
	if !validTransactionType(req.TransactionType) {
		return ledgerdomain.TransactionHistory{}, ledgerdomain.ErrInvalidType
	}
	if req.Value.LessThanOrEqual(decimal.Zero) {
		return ledgerdomain.TransactionHistory{}, ledgerdomain.ErrInvalidAmount
	}

	membership, err := s.lockMembership(ctx, tx, membershipID)
	if err != nil {
		return ledgerdomain.TransactionHistory{}, err
	}

	entryType := req.Type
	if entryType == "" {
		entryType = ledgerdomain.TypeBilling
	}

	totals, err := billingTotalsTx(ctx, tx, membershipID)
	if err != nil {
		return ledgerdomain.TransactionHistory{}, err
	}
	switch req.TransactionType {
	case ledgerdomain.TransactionCredit:
		totals.Credit = totals.Credit.Add(req.Value)
	case ledgerdomain.TransactionDebit:
		totals.Debit = totals.Debit.Add(req.Value)
	case ledgerdomain.TransactionAdjustment:
		totals.Adjustment = totals.Adjustment.Add(req.Value)
	}

	commission := decimal.Zero
	if entryType == ledgerdomain.TypeBilling && req.TransactionType == ledgerdomain.TransactionCredit {
		var merchant merchantdomain.Merchant
		if err := tx.WithContext(ctx).First(&merchant, "id = ?", membership.MerchantID).Error; err != nil {
			return ledgerdomain.TransactionHistory{}, err
		}
		commission = merchant.CommissionAmount(req.IsOnline, req.Value)
	}

	metadata := req.Metadata
	if metadata == nil {
		metadata = datatypes.JSONMap{}
	}

	entry := ledgerdomain.TransactionHistory{
		ID:              id.New(id.PrefixTransaction, s.genID),
		MembershipID:    membershipID,
		MerchantID:      membership.MerchantID,
		InvoiceID:       req.InvoiceID,
		Type:            entryType,
		TransactionType: req.TransactionType,
		Value:           req.Value,
		Balance:         totals.Balance(),
		Commission:      commission,
		IsOnline:        req.IsOnline,
		CreatedBy:       req.Actor,
		Metadata:        metadata,
		CreatedAt:       s.clock.Now(),
	}

	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return ledgerdomain.TransactionHistory{}, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordLedgerEntry(string(entryType), string(req.TransactionType))
	}
	return entry, nil
}

// ApplyPayment allocates a payment across the membership's unpaid invoices,
// oldest first. Each candidate's prior state is snapshotted into the credit
// entry's metadata; Revert restores exactly that snapshot.
func (s *Service) ApplyPayment(ctx context.Context, req ledgerdomain.ApplyPaymentRequest) (ledgerdomain.TransactionHistory, error) {
	if req.Value.LessThanOrEqual(decimal.Zero) {
		return ledgerdomain.TransactionHistory{}, ledgerdomain.ErrInvalidAmount
	}

	var entry ledgerdomain.TransactionHistory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockMembership(ctx, tx, req.MembershipID); err != nil {
			return err
		}

		var invoices []invoicedomain.Invoice
		if err := tx.WithContext(ctx).
			Where("membership_id = ? AND status = ?", req.MembershipID, invoicedomain.StatusUnpaid).
			Order("created_at ASC").
			Find(&invoices).Error; err != nil {
			return err
		}

		previousState := make([]any, 0, len(invoices))
		for _, inv := range invoices {
			previousState = append(previousState, map[string]any{
				"id":         inv.ID,
				"status":     string(inv.Status),
				"due_amount": inv.DueAmount.StringFixed(2),
				"updated_at": inv.UpdatedAt.UTC().Format(time.RFC3339Nano),
			})
		}

		now := s.clock.Now()
		remaining := req.Value
		touched := make([]any, 0, len(invoices))
		for i := range invoices {
			inv := &invoices[i]
			if remaining.GreaterThanOrEqual(inv.DueAmount) {
				remaining = remaining.Sub(inv.DueAmount)
				inv.DueAmount = decimal.Zero
				inv.Status = invoicedomain.StatusPaid
			} else {
				inv.DueAmount = inv.DueAmount.Sub(remaining)
				remaining = decimal.Zero
			}
			inv.HandledBy = req.Actor
			if inv.Metadata == nil {
				inv.Metadata = datatypes.JSONMap{}
			}
			inv.Metadata[ledgerdomain.MetaMarkAsPaidBy] = req.Actor
			inv.UpdatedAt = now
			if err := tx.WithContext(ctx).Save(inv).Error; err != nil {
				return err
			}
			touched = append(touched, map[string]any{
				"code":         inv.Code,
				"status":       string(inv.Status),
				"due_amount":   inv.DueAmount.StringFixed(2),
				"total_amount": inv.TotalAmount.StringFixed(2),
				"created_at":   inv.CreatedAt.UTC().Format(time.RFC3339Nano),
				"updated_at":   inv.UpdatedAt.UTC().Format(time.RFC3339Nano),
				"metadata":     map[string]any(inv.Metadata),
			})
			if remaining.IsZero() {
				break
			}
		}

		var err error
		entry, err = s.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
			MembershipID:    req.MembershipID,
			Type:            ledgerdomain.TypeBilling,
			TransactionType: ledgerdomain.TransactionCredit,
			Value:           req.Value,
			IsOnline:        req.IsOnline,
			Actor:           req.Actor,
			Metadata: datatypes.JSONMap{
				ledgerdomain.MetaCreatedBy:     req.Actor,
				ledgerdomain.MetaInvoices:      touched,
				ledgerdomain.MetaPreviousState: previousState,
			},
		})
		return err
	})
	if err != nil {
		return ledgerdomain.TransactionHistory{}, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.RecordPaymentApplied()
	}
	return entry, nil
}

// Revert restores the invoices a payment touched to their snapshotted state and
// deletes the entry. Invoices cancelled since the payment are left alone; any
// other divergence from the snapshot aborts the revert.
func (s *Service) Revert(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ledgerdomain.ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry ledgerdomain.TransactionHistory
		err := tx.WithContext(ctx).First(&entry, "id = ?", transactionID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ledgerdomain.ErrNotFound
			}
			return err
		}

		if _, err := s.lockMembership(ctx, tx, entry.MembershipID); err != nil {
			return err
		}

		snapshots, ok := entry.Metadata[ledgerdomain.MetaPreviousState].([]any)
		if !ok {
			return ledgerdomain.ErrNotRevertible
		}

		for _, raw := range snapshots {
			snapshot, ok := raw.(map[string]any)
			if !ok {
				return ledgerdomain.ErrNotRevertible
			}
			invoiceID, _ := snapshot["id"].(string)
			prevStatus, _ := snapshot["status"].(string)
			prevDueRaw, _ := snapshot["due_amount"].(string)
			prevUpdatedRaw, _ := snapshot["updated_at"].(string)

			prevDue, err := decimal.NewFromString(prevDueRaw)
			if err != nil {
				return ledgerdomain.ErrNotRevertible
			}

			var inv invoicedomain.Invoice
			err = tx.WithContext(ctx).First(&inv, "id = ?", invoiceID).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if inv.Status == invoicedomain.StatusCancelled {
				continue
			}

			if prevUpdatedRaw != "" {
				prevUpdated, err := time.Parse(time.RFC3339Nano, prevUpdatedRaw)
				if err == nil && !sameInstant(inv.UpdatedAt, prevUpdated) && !wasTouchedByEntry(entry, inv) {
					return ledgerdomain.ErrStateChanged
				}
			}

			updates := map[string]any{
				"status":     prevStatus,
				"due_amount": prevDue,
				"updated_at": s.clock.Now(),
			}
			if err := tx.WithContext(ctx).Model(&invoicedomain.Invoice{}).
				Where("id = ?", inv.ID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		return tx.WithContext(ctx).Delete(&ledgerdomain.TransactionHistory{}, "id = ?", entry.ID).Error
	})
}

func (s *Service) GetByID(ctx context.Context, transactionID string) (ledgerdomain.TransactionHistory, error) {
	var entry ledgerdomain.TransactionHistory
	err := s.db.WithContext(ctx).First(&entry, "id = ?", strings.TrimSpace(transactionID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledgerdomain.TransactionHistory{}, ledgerdomain.ErrNotFound
		}
		return ledgerdomain.TransactionHistory{}, err
	}
	return entry, nil
}

func (s *Service) ListByMembership(ctx context.Context, membershipID string) ([]ledgerdomain.TransactionHistory, error) {
	var entries []ledgerdomain.TransactionHistory
	err := s.db.WithContext(ctx).
		Where("membership_id = ?", membershipID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (s *Service) BillingTotals(ctx context.Context, membershipID string) (ledgerdomain.Totals, error) {
	return billingTotalsTx(ctx, s.db, membershipID)
}

func (s *Service) BillingTotalsTx(ctx context.Context, tx *gorm.DB, membershipID string) (ledgerdomain.Totals, error) {
	return billingTotalsTx(ctx, tx, membershipID)
}

// billingTotalsTx sums credit/debit/adjustment buckets over the membership's
// full billing history. Deliberately a from-scratch recompute; per-customer
// volumes stay small enough that correctness wins over caching.
func billingTotalsTx(ctx context.Context, tx *gorm.DB, membershipID string) (ledgerdomain.Totals, error) {
	type row struct {
		TransactionType ledgerdomain.TransactionType
		Total           decimal.Decimal
	}

	var rows []row
	err := tx.WithContext(ctx).Model(&ledgerdomain.TransactionHistory{}).
		Select("transaction_type, COALESCE(SUM(value), 0) AS total").
		Where("membership_id = ? AND type = ?", membershipID, ledgerdomain.TypeBilling).
		Group("transaction_type").
		Scan(&rows).Error
	if err != nil {
		return ledgerdomain.Totals{}, err
	}

	totals := ledgerdomain.Totals{
		Credit:     decimal.Zero,
		Debit:      decimal.Zero,
		Adjustment: decimal.Zero,
	}
	for _, r := range rows {
		switch r.TransactionType {
		case ledgerdomain.TransactionCredit:
			totals.Credit = r.Total
		case ledgerdomain.TransactionDebit:
			totals.Debit = r.Total
		case ledgerdomain.TransactionAdjustment:
			totals.Adjustment = r.Total
		}
	}
	return totals, nil
}

// lockMembership serializes ledger writes per membership for the transaction's
// duration. sqlite rejects FOR UPDATE and serializes writers itself.
func (s *Service) lockMembership(ctx context.Context, tx *gorm.DB, membershipID string) (membershipdomain.MerchantMembership, error) {
	stmt := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var membership membershipdomain.MerchantMembership
	err := stmt.First(&membership, "id = ?", membershipID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return membershipdomain.MerchantMembership{}, ledgerdomain.ErrInvalidMembership
		}
		return membershipdomain.MerchantMembership{}, err
	}
	return membership, nil
}

// wasTouchedByEntry reports whether the invoice's current state matches what the
// payment entry itself wrote, so the entry's own mutation never counts as a
// conflicting edit.
func wasTouchedByEntry(entry ledgerdomain.TransactionHistory, inv invoicedomain.Invoice) bool {
	touched, ok := entry.Metadata[ledgerdomain.MetaInvoices].([]any)
	if !ok {
		return false
	}
	for _, raw := range touched {
		fields, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		code, _ := fields["code"].(string)
		if code != inv.Code {
			continue
		}
		status, _ := fields["status"].(string)
		dueRaw, _ := fields["due_amount"].(string)
		due, err := decimal.NewFromString(dueRaw)
		if err != nil {
			return false
		}
		return status == string(inv.Status) && due.Equal(inv.DueAmount)
	}
	return false
}

func sameInstant(a, b time.Time) bool {
	return a.UTC().Truncate(time.Millisecond).Equal(b.UTC().Truncate(time.Millisecond))
}

func validTransactionType(t ledgerdomain.TransactionType) bool {
	switch t {
	case ledgerdomain.TransactionDebit, ledgerdomain.TransactionCredit,
		ledgerdomain.TransactionRefund, ledgerdomain.TransactionAdjustment:
		return true
	default:
		return false
	}
}
