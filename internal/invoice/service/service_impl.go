package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/id"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/sequence"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	LedgerSvc  ledgerdomain.Service
	BillingCfg *config.BillingConfigHolder
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	ledgerSvc  ledgerdomain.Service
	billingCfg *config.BillingConfigHolder
}

func New(p Params) invoicedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		ledgerSvc:  p.LedgerSvc,
		billingCfg: p.BillingCfg,
	}
}

// Create issues an ad hoc invoice. When the membership's ledger shows a positive
// balance, the new invoice is immediately offset against it: fully (paid at
// creation) or partially (reduced due amount). The offset is documented on the
// latest open credit entry's metadata; no extra ledger entry is written for it.
func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	if req.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	invoiceType := req.Type
	if invoiceType == "" {
		invoiceType = invoicedomain.TypeOneTime
	}

	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var membership membershipdomain.MerchantMembership
		if err := tx.WithContext(ctx).First(&membership, "id = ?", req.MembershipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return membershipdomain.ErrNotFound
			}
			return err
		}
		var merchant merchantdomain.Merchant
		if err := tx.WithContext(ctx).First(&merchant, "id = ?", membership.MerchantID).Error; err != nil {
			return err
		}

		code, err := s.nextInvoiceCode(ctx, tx, merchant)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		metadata := req.Metadata
		if metadata == nil {
			metadata = datatypes.JSONMap{}
		}

		invoice = invoicedomain.Invoice{
			ID:           id.New(id.PrefixInvoice, s.genID),
			Code:         code,
			MerchantID:   merchant.ID,
			MembershipID: membership.ID,
			MemberID:     membership.MemberID,
			Status:       invoicedomain.StatusUnpaid,
			Type:         invoiceType,
			TotalAmount:  req.TotalAmount,
			DueAmount:    req.TotalAmount,
			DueDate:      now.AddDate(0, 0, s.billingCfg.Get().DueDays),
			Metadata:     metadata,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		// Positive balance from prior payments offsets the new invoice before
		// any due amount is owed. Read through tx so the decision sits inside
		// the same transaction as the write.
		totals, err := s.ledgerSvc.BillingTotalsTx(ctx, tx, membership.ID)
		if err != nil {
			return err
		}
		if balance := totals.Balance(); balance.GreaterThan(decimal.Zero) {
			if balance.GreaterThanOrEqual(req.TotalAmount) {
				invoice.Status = invoicedomain.StatusPaid
				invoice.DueAmount = decimal.Zero
			} else {
				invoice.DueAmount = req.TotalAmount.Sub(balance)
			}
			if err := linkPriorCredit(ctx, tx, membership.ID, code); err != nil {
				return err
			}
		}

		if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
			return err
		}

		_, err = s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
			MembershipID:    membership.ID,
			InvoiceID:       invoice.ID,
			Type:            ledgerdomain.TypeBilling,
			TransactionType: ledgerdomain.TransactionDebit,
			Value:           req.TotalAmount,
			Actor:           req.Actor,
			Metadata:        datatypes.JSONMap{ledgerdomain.MetaInvoices: []any{code}},
		})
		return err
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("code", invoice.Code),
		zap.String("status", string(invoice.Status)))
	return invoice, nil
}

// Amend changes an unpaid invoice's total. Decreases emit an adjustment entry
// for the delta and shrink the due amount; increases emit a debit and grow it.
// Remarks explaining the change are mandatory and accumulate on the invoice.
func (s *Service) Amend(ctx context.Context, req invoicedomain.AmendInvoiceRequest) (invoicedomain.Invoice, error) {
	if req.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidAmount
	}

	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.getForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case invoicedomain.StatusPaid:
			return invoicedomain.ErrAlreadyPaid
		case invoicedomain.StatusCancelled:
			return invoicedomain.ErrNotAmendable
		}

		if invoice.TotalAmount.Equal(req.TotalAmount) {
			return nil
		}
		remarks := strings.TrimSpace(req.Remarks)
		if remarks == "" {
			return invoicedomain.ErrRemarksRequired
		}

		if invoice.TotalAmount.GreaterThan(req.TotalAmount) {
			delta := invoice.TotalAmount.Sub(req.TotalAmount)
			if invoice.DueAmount.Sub(delta).IsNegative() {
				return invoicedomain.ErrDueBelowZero
			}
			if _, err := s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
				MembershipID:    invoice.MembershipID,
				InvoiceID:       invoice.ID,
				Type:            ledgerdomain.TypeBilling,
				TransactionType: ledgerdomain.TransactionAdjustment,
				Value:           delta,
				Actor:           req.Actor,
				Metadata: datatypes.JSONMap{
					ledgerdomain.MetaInvoices:    []any{invoice.Code},
					ledgerdomain.MetaInvoiceInfo: map[string]any{"remarks": remarks},
				},
			}); err != nil {
				return err
			}
			invoice.DueAmount = invoice.DueAmount.Sub(delta)
		} else {
			delta := req.TotalAmount.Sub(invoice.TotalAmount)
			if _, err := s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
				MembershipID:    invoice.MembershipID,
				InvoiceID:       invoice.ID,
				Type:            ledgerdomain.TypeBilling,
				TransactionType: ledgerdomain.TransactionDebit,
				Value:           delta,
				Actor:           req.Actor,
				Metadata: datatypes.JSONMap{
					ledgerdomain.MetaInvoices:    []any{invoice.Code},
					ledgerdomain.MetaInvoiceInfo: map[string]any{"remarks": remarks},
				},
			}); err != nil {
				return err
			}
			invoice.DueAmount = invoice.DueAmount.Add(delta)
		}

		invoice.TotalAmount = req.TotalAmount
		if invoice.Metadata == nil {
			invoice.Metadata = datatypes.JSONMap{}
		}
		existing, _ := invoice.Metadata["remarks"].(string)
		invoice.Metadata["remarks"] = existing + remarks + ". "
		invoice.UpdatedAt = s.clock.Now()
		return tx.WithContext(ctx).Save(&invoice).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) MarkPaid(ctx context.Context, req invoicedomain.MarkPaidRequest) (invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.getForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case invoicedomain.StatusPaid:
			return invoicedomain.ErrAlreadyPaid
		case invoicedomain.StatusCancelled:
			return invoicedomain.ErrNotAmendable
		}

		if invoice.DueAmount.GreaterThan(decimal.Zero) {
			if _, err := s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
				MembershipID:    invoice.MembershipID,
				InvoiceID:       invoice.ID,
				Type:            ledgerdomain.TypeBilling,
				TransactionType: ledgerdomain.TransactionCredit,
				Value:           invoice.DueAmount,
				Actor:           req.Actor,
				Metadata:        datatypes.JSONMap{ledgerdomain.MetaInvoices: []any{invoice.Code}},
			}); err != nil {
				return err
			}
		}

		invoice.Status = invoicedomain.StatusPaid
		invoice.DueAmount = decimal.Zero
		invoice.HandledBy = req.Actor
		invoice.UpdatedAt = s.clock.Now()
		return tx.WithContext(ctx).Save(&invoice).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) Cancel(ctx context.Context, req invoicedomain.CancelInvoiceRequest) (invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		invoice, err = s.getForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice.Status != invoicedomain.StatusUnpaid || !invoice.DueAmount.GreaterThan(decimal.Zero) {
			return invoicedomain.ErrNotCancellable
		}

		if _, err := s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
			MembershipID:    invoice.MembershipID,
			InvoiceID:       invoice.ID,
			Type:            ledgerdomain.TypeBilling,
			TransactionType: ledgerdomain.TransactionAdjustment,
			Value:           invoice.TotalAmount,
			Actor:           req.Actor,
			Metadata:        datatypes.JSONMap{ledgerdomain.MetaInvoices: []any{invoice.Code}},
		}); err != nil {
			return err
		}

		invoice.Status = invoicedomain.StatusCancelled
		invoice.DueAmount = decimal.Zero
		invoice.HandledBy = req.Actor
		invoice.UpdatedAt = s.clock.Now()
		return tx.WithContext(ctx).Save(&invoice).Error
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) GetByID(ctx context.Context, invoiceID string) (invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).First(&invoice, "id = ?", strings.TrimSpace(invoiceID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
		}
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	filter := invoicedomain.Invoice{
		MerchantID:   req.MerchantID,
		MembershipID: req.MembershipID,
		MemberID:     req.MemberID,
	}
	if req.Status != nil {
		filter.Status = *req.Status
	}

	var invoices []invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Where(&filter).
		Order("created_at DESC").
		Find(&invoices).Error
	return invoices, err
}

// getForUpdate locks the invoice row for the transaction's duration so two
// concurrent mutations cannot both pass the status check. sqlite rejects FOR
// UPDATE and serializes writers itself.
func (s *Service) getForUpdate(ctx context.Context, tx *gorm.DB, invoiceID string) (invoicedomain.Invoice, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidID
	}

	stmt := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice invoicedomain.Invoice
	err := stmt.First(&invoice, "id = ?", invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
		}
		return invoicedomain.Invoice{}, err
	}
	return invoice, nil
}

// nextInvoiceCode assigns the merchant's next sequential invoice number. The
// first code for a merchant is its own code followed by 100000.
func (s *Service) nextInvoiceCode(ctx context.Context, tx *gorm.DB, merchant merchantdomain.Merchant) (string, error) {
	n, err := sequence.Next(ctx, tx, sequence.InvoiceScope(merchant.ID), invoicedomain.CodeSuffixStart)
	if err != nil {
		return "", err
	}
	return invoicedomain.FormatCode(merchant.Code, n), nil
}

// linkPriorCredit appends the new invoice's code to the latest open credit
// entry's metadata. The consumed balance is documented there only; no second
// ledger entry records the offset.
func linkPriorCredit(ctx context.Context, tx *gorm.DB, membershipID, invoiceCode string) error {
	var entry ledgerdomain.TransactionHistory
	err := tx.WithContext(ctx).
		Where("membership_id = ? AND type = ? AND transaction_type = ?",
			membershipID, ledgerdomain.TypeBilling, ledgerdomain.TransactionCredit).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if entry.Metadata == nil {
		entry.Metadata = datatypes.JSONMap{}
	}
	linked, _ := entry.Metadata[ledgerdomain.MetaInvoices].([]any)
	entry.Metadata[ledgerdomain.MetaInvoices] = append(linked, invoiceCode)
	return tx.WithContext(ctx).Model(&ledgerdomain.TransactionHistory{}).
		Where("id = ?", entry.ID).
		Update("metadata", entry.Metadata).Error
}
