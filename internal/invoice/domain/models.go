// Package domain contains persistence models for invoices.
package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states. Paid and cancelled are
// terminal for financial edits; only a payment revert may reopen them.
type InvoiceStatus string

const (
	StatusUnpaid    InvoiceStatus = "unpaid"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceType distinguishes generated monthly bills from ad hoc ones.
type InvoiceType string

const (
	TypeMonthly       InvoiceType = "monthly"
	TypeOneTime       InvoiceType = "one_time"
	TypeOther         InvoiceType = "other"
	TypeMiscellaneous InvoiceType = "miscellaneous"
)

// Invoice is one billing statement for a membership.
type Invoice struct {
	ID           string            `gorm:"primaryKey;type:varchar(40)" json:"id"`
	Code         string            `gorm:"uniqueIndex;type:varchar(12);not null" json:"code"`
	MerchantID   string            `gorm:"type:varchar(40);not null;index" json:"merchant_id"`
	MembershipID string            `gorm:"type:varchar(40);not null;index" json:"membership_id"`
	MemberID     string            `gorm:"type:varchar(40);not null;index" json:"member_id"`
	Status       InvoiceStatus     `gorm:"type:varchar(15);not null;default:'unpaid';index" json:"status"`
	Type         InvoiceType       `gorm:"type:varchar(15);not null;default:'one_time'" json:"type"`
	TotalAmount  decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	DueAmount    decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"due_amount"`
	DueDate      time.Time         `gorm:"not null" json:"due_date"`
	HandledBy    string            `gorm:"type:varchar(40)" json:"handled_by,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// CodeSuffixStart is the first per-merchant invoice number.
const CodeSuffixStart = 100000

// FormatCode renders an invoice code: the merchant's code followed by its
// sequential number. Concatenation keeps the merchant code's leading zeros.
func FormatCode(merchantCode string, n int64) string {
	return merchantCode + strconv.FormatInt(n, 10)
}
