// Package sequence assigns monotonic codes (member codes, membership accounts,
// per-merchant invoice numbers) from a row-locked counter table, so code
// assignment never depends on a read-then-increment over existing rows.
package sequence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ScopeMemberCode        = "member_code"
	ScopeMembershipAccount = "membership_account"
	ScopeMerchantCode      = "merchant_code"
)

// InvoiceScope returns the per-merchant counter scope for invoice codes.
func InvoiceScope(merchantID string) string {
	return "invoice:" + merchantID
}

// Counter is one named monotonic counter. Value holds the last assigned number.
type Counter struct {
	Scope string `gorm:"primaryKey;type:varchar(80)"`
	Value int64  `gorm:"not null"`
}

func (Counter) TableName() string { return "sequence_counters" }

// Next assigns the next value for scope, creating the counter at start when it
// does not exist yet (the first assigned value is then start). Must be called
// inside a transaction; the counter row is locked for the transaction's duration
// so concurrent writers cannot assign duplicate codes.
func Next(ctx context.Context, tx *gorm.DB, scope string, start int64) (int64, error) {
	stmt := tx.WithContext(ctx)
	if tx.Dialector.Name() != "sqlite" {
		// sqlite serializes writers on its own and rejects FOR UPDATE.
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var counter Counter
	err := stmt.Where("scope = ?", scope).First(&counter).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		counter = Counter{Scope: scope, Value: start}
		if err := tx.WithContext(ctx).Create(&counter).Error; err != nil {
			return 0, err
		}
		return counter.Value, nil
	case err != nil:
		return 0, err
	}

	counter.Value++
	if err := tx.WithContext(ctx).Model(&Counter{}).
		Where("scope = ?", scope).
		Update("value", counter.Value).Error; err != nil {
		return 0, err
	}
	return counter.Value, nil
}
