package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecordRequest describes a ledger entry to append. Actor is the staff or
// merchant member performing the operation, threaded explicitly rather than
// carried as request state.
type RecordRequest struct {
	MembershipID    string
	InvoiceID       string
	Type            EntryType
	TransactionType TransactionType
	Value           decimal.Decimal
	IsOnline        bool
	Actor           string
	Metadata        datatypes.JSONMap
}

type ApplyPaymentRequest struct {
	MembershipID string
	Value        decimal.Decimal
	IsOnline     bool
	Actor        string
}

type Service interface {
	// Record appends an entry in its own transaction.
	Record(context.Context, RecordRequest) (TransactionHistory, error)
	// RecordTx appends an entry inside the caller's transaction, so invoice
	// mutation and its ledger entry commit or roll back together.
	RecordTx(ctx context.Context, tx *gorm.DB, req RecordRequest) (TransactionHistory, error)

	// ApplyPayment allocates a payment across the membership's unpaid invoices
	// oldest first, snapshotting their prior state for Revert, and records the
	// credit entry.
	ApplyPayment(context.Context, ApplyPaymentRequest) (TransactionHistory, error)
	// Revert restores the invoices touched by a payment-application entry to
	// their snapshotted state and deletes the entry. Fails when any touched
	// invoice changed since the snapshot.
	Revert(ctx context.Context, transactionID string) error

	GetByID(ctx context.Context, transactionID string) (TransactionHistory, error)
	ListByMembership(ctx context.Context, membershipID string) ([]TransactionHistory, error)
	// BillingTotals sums the membership's billing history by bucket.
	BillingTotals(ctx context.Context, membershipID string) (Totals, error)
	// BillingTotalsTx sums inside the caller's transaction, so decisions based
	// on the balance see entries written earlier in the same transaction.
	BillingTotalsTx(ctx context.Context, tx *gorm.DB, membershipID string) (Totals, error)
}

var (
	ErrInvalidMembership = errors.New("invalid_membership")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidType       = errors.New("invalid_transaction_type")
	ErrNotFound          = errors.New("transaction_not_found")
	ErrNotRevertible     = errors.New("transaction_not_revertible")
	ErrStateChanged      = errors.New("invoice_state_changed_since_payment")
)
