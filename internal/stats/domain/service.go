package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Metric is a single labelled figure shown on a customer profile.
type Metric struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// CustomerStats aggregates a membership's financial position.
type CustomerStats struct {
	TotalSpend     decimal.Decimal `json:"total_spend"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
	TotalSaved     decimal.Decimal `json:"total_saved"`
	Metrics        []Metric        `json:"metrics"`
}

var ErrInvalidMembership = errors.New("invalid_membership")

type Service interface {
	// ForMembership computes the membership's spend, remaining balance,
	// savings, and any merchant-specific metrics such as bottle balance.
	ForMembership(ctx context.Context, membershipID string) (CustomerStats, error)
}
