package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CommissionTier is one ceiling/rate pair of a merchant's commission structure.
// Tiers are kept ascending by MaxCredit.
type CommissionTier struct {
	MaxCredit  decimal.Decimal `json:"max_credit"`
	Commission decimal.Decimal `json:"commission"`
}

const (
	commissionChannelCash   = "cash"
	commissionChannelOnline = "online"
)

// CommissionRate returns the commission percentage for a transaction value.
// The first tier whose ceiling covers the value wins; a value exceeding every
// ceiling earns no commission rather than an error.
func (m Merchant) CommissionRate(isOnline bool, value decimal.Decimal) decimal.Decimal {
	channel := commissionChannelCash
	if isOnline {
		channel = commissionChannelOnline
	}

	for _, tier := range m.commissionTiers(channel) {
		if value.LessThanOrEqual(tier.MaxCredit) {
			return tier.Commission
		}
	}
	return decimal.Zero
}

// CommissionAmount returns value * rate / 100 at full decimal precision.
func (m Merchant) CommissionAmount(isOnline bool, value decimal.Decimal) decimal.Decimal {
	rate := m.CommissionRate(isOnline, value)
	return value.Mul(rate).Div(decimal.NewFromInt(100))
}

func (m Merchant) commissionTiers(channel string) []CommissionTier {
	raw, ok := m.CommissionStructure[channel]
	if !ok {
		return nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	tiers, _ := ParseTiers(entries)
	return tiers
}

// ParseTiers decodes a channel's raw tier list as stored in the merchant's
// commission structure JSON. Entries missing either field are rejected.
func ParseTiers(entries []any) ([]CommissionTier, error) {
	tiers := make([]CommissionTier, 0, len(entries))
	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, ErrInvalidStructure
		}
		maxCredit, ok := decimalField(fields, "max_credit")
		if !ok {
			return nil, ErrInvalidStructure
		}
		commission, ok := decimalField(fields, "commission")
		if !ok {
			return nil, ErrInvalidStructure
		}
		tiers = append(tiers, CommissionTier{MaxCredit: maxCredit, Commission: commission})
	}
	return tiers, nil
}

func decimalField(fields map[string]any, key string) (decimal.Decimal, bool) {
	raw, ok := fields[key]
	if !ok {
		return decimal.Zero, false
	}
	switch typed := raw.(type) {
	case float64:
		return decimal.NewFromFloat(typed), true
	case int64:
		return decimal.NewFromInt(typed), true
	case int:
		return decimal.NewFromInt(int64(typed)), true
	case json.Number:
		// JSONMap columns decode numbers as json.Number when read back from
		// the database, not as float64.
		parsed, err := decimal.NewFromString(typed.String())
		if err != nil {
			return decimal.Zero, false
		}
		return parsed, true
	case string:
		parsed, err := decimal.NewFromString(typed)
		if err != nil {
			return decimal.Zero, false
		}
		return parsed, true
	case decimal.Decimal:
		return typed, true
	default:
		return decimal.Zero, false
	}
}
