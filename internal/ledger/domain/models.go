// Package domain contains the transaction ledger models. Entries are immutable
// once written; corrections happen through adjustment entries or an explicit
// snapshot-based revert, never through updates.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// EntryType separates customer-facing billing entries from commission bookkeeping.
type EntryType string

const (
	TypeBilling    EntryType = "billing"
	TypeCommission EntryType = "commission"
)

// TransactionType is the direction/kind of a ledger entry.
type TransactionType string

const (
	TransactionDebit      TransactionType = "debit"
	TransactionCredit     TransactionType = "credit"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

// TransactionHistory is one immutable ledger entry for a membership. Balance
// snapshots the running balance after this entry, recomputed from the full
// history at write time.
type TransactionHistory struct {
	ID               string            `gorm:"primaryKey;type:varchar(40)" json:"id"`
	MembershipID     string            `gorm:"type:varchar(40);not null;index:idx_transactions_membership" json:"membership_id"`
	MerchantID       string            `gorm:"type:varchar(40);not null;index" json:"merchant_id"`
	InvoiceID        string            `gorm:"type:varchar(40);index" json:"invoice_id,omitempty"`
	Type             EntryType         `gorm:"type:varchar(20);not null;default:'billing';index:idx_transactions_membership" json:"type"`
	TransactionType  TransactionType   `gorm:"type:varchar(15);not null;default:'credit';index:idx_transactions_membership" json:"transaction_type"`
	Value            decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"value"`
	Balance          decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	Commission       decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"commission"`
	IsOnline         bool              `gorm:"not null;default:false" json:"is_online"`
	IsCommissionPaid bool              `gorm:"not null;default:false" json:"is_commission_paid"`
	CreatedBy        string            `gorm:"type:varchar(40)" json:"created_by,omitempty"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (TransactionHistory) TableName() string { return "transaction_histories" }

// Totals are the per-bucket sums of a membership's billing history.
type Totals struct {
	Credit     decimal.Decimal
	Debit      decimal.Decimal
	Adjustment decimal.Decimal
}

// Balance returns credit - (debit - adjustment). Positive means the customer
// holds credit with the merchant; negative means they owe.
func (t Totals) Balance() decimal.Decimal {
	return t.Credit.Sub(t.Debit.Sub(t.Adjustment))
}

// Metadata keys used on payment-application entries. previous_invoice_state is
// the sole input to Revert.
const (
	MetaInvoices        = "invoices"
	MetaPreviousState   = "previous_invoice_state"
	MetaCreatedBy       = "created_by"
	MetaInvoiceCode     = "invoice_code"
	MetaInvoiceInfo     = "invoice_info"
	MetaMarkAsPaidBy    = "mark_as_paid_by"
	MetaGeneratedPeriod = "generated_period"
)
