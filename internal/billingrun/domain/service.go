// Package domain defines the monthly invoice generation contract.
package domain

import (
	"context"
	"errors"
)

// GenerateRequest targets one merchant and one calendar month. Zero Year/Month
// mean the current period.
type GenerateRequest struct {
	MerchantID string
	Year       int
	Month      int
	Actor      string
}

// GenerateResult reports what one run did.
type GenerateResult struct {
	Cancelled int `json:"cancelled"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
}

type Service interface {
	// Generate is idempotent per (merchant, year, month): stale unpaid monthly
	// invoices of the period are voided with reversing adjustments before new
	// ones are issued, so re-running never double-bills. The whole run commits
	// or rolls back as one unit.
	Generate(context.Context, GenerateRequest) (GenerateResult, error)
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidMonth    = errors.New("invalid_month")
)
