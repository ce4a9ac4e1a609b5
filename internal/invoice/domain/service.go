package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CreateInvoiceRequest struct {
	MembershipID string
	TotalAmount  decimal.Decimal
	Type         InvoiceType
	Metadata     datatypes.JSONMap
	Actor        string
}

type AmendInvoiceRequest struct {
	InvoiceID   string
	TotalAmount decimal.Decimal
	Remarks     string
	Actor       string
}

type MarkPaidRequest struct {
	InvoiceID string
	Actor     string
}

type CancelInvoiceRequest struct {
	InvoiceID string
	Actor     string
}

type ListInvoiceRequest struct {
	MerchantID   string
	MembershipID string
	MemberID     string
	Status       *InvoiceStatus
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	// Amend changes the amount of an unpaid invoice, emitting the delta as an
	// adjustment (decrease) or debit (increase) entry. Remarks are required and
	// appended to any existing remarks.
	Amend(context.Context, AmendInvoiceRequest) (Invoice, error)
	MarkPaid(context.Context, MarkPaidRequest) (Invoice, error)
	// Cancel voids an unpaid invoice with outstanding dues, crediting the full
	// total back as an adjustment entry.
	Cancel(context.Context, CancelInvoiceRequest) (Invoice, error)
	GetByID(ctx context.Context, invoiceID string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) ([]Invoice, error)
}

var (
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidID       = errors.New("invalid_invoice_id")
	ErrRemarksRequired = errors.New("remarks_required")
	ErrAlreadyPaid     = errors.New("invoice_already_paid")
	ErrNotAmendable    = errors.New("invoice_not_amendable")
	ErrDueBelowZero    = errors.New("due_amount_below_zero")
	ErrNotCancellable  = errors.New("invoice_not_cancellable")
	ErrNotFound        = errors.New("invoice_not_found")
)
