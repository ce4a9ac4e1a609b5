package sequence

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sequence_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Counter{}))
	return db
}

func TestNextStartsAtStart(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		value, err := Next(ctx, tx, ScopeMemberCode, 1000)
		require.NoError(t, err)
		assert.EqualValues(t, 1000, value)
		return nil
	})
	require.NoError(t, err)
}

func TestNextIncrements(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for want := int64(1000); want < 1005; want++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			value, err := Next(ctx, tx, ScopeMemberCode, 1000)
			require.NoError(t, err)
			assert.Equal(t, want, value)
			return nil
		})
		require.NoError(t, err)
	}
}

func TestNextScopesAreIndependent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		value, err := Next(ctx, tx, ScopeMembershipAccount, 10000)
		require.NoError(t, err)
		assert.EqualValues(t, 10000, value)

		value, err = Next(ctx, tx, InvoiceScope("mrc_1"), 100000)
		require.NoError(t, err)
		assert.EqualValues(t, 100000, value)

		value, err = Next(ctx, tx, InvoiceScope("mrc_2"), 100000)
		require.NoError(t, err)
		assert.EqualValues(t, 100000, value)

		value, err = Next(ctx, tx, InvoiceScope("mrc_1"), 100000)
		require.NoError(t, err)
		assert.EqualValues(t, 100001, value)
		return nil
	})
	require.NoError(t, err)
}

func TestNextRollbackDiscardsAssignment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	boom := fmt.Errorf("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := Next(ctx, tx, ScopeMemberCode, 1000); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = db.Transaction(func(tx *gorm.DB) error {
		value, err := Next(ctx, tx, ScopeMemberCode, 1000)
		require.NoError(t, err)
		assert.EqualValues(t, 1000, value)
		return nil
	})
	require.NoError(t, err)
}
