package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/supply/domain"
)

var testDBSeq atomic.Int64

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:supply_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.SupplyRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC))

	return New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: fake,
	}), fake
}

func TestRecordDefaultsToToday(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	rec, err := svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_1",
		Given:        2,
		Taken:        1,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", rec.ForDate)
	assert.Equal(t, 2, rec.Given)
	assert.Equal(t, 1, rec.Taken)
}

func TestRecordSameDayOverwrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)

	first, err := svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_1", Given: 2, Taken: 0, ForDate: day,
	})
	require.NoError(t, err)

	second, err := svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_1", Given: 3, Taken: 1, ForDate: day,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.Given)
	assert.Equal(t, 1, second.Taken)

	records, err := svc.ListByMembership(ctx, "mms_1")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.RecordSupplyRequest{MembershipID: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidMembership)

	_, err = svc.Record(ctx, domain.RecordSupplyRequest{MembershipID: "mms_1", Given: -1})
	assert.ErrorIs(t, err, domain.ErrNegativeQuantity)

	_, err = svc.Record(ctx, domain.RecordSupplyRequest{MembershipID: "mms_1", Taken: -2})
	assert.ErrorIs(t, err, domain.ErrNegativeQuantity)
}

func TestTotalGivenInMonth(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		_, err := svc.Record(ctx, domain.RecordSupplyRequest{
			MembershipID: "mms_1",
			Given:        2,
			ForDate:      time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}
	// Neighboring month and other memberships stay out of the sum.
	_, err := svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_1", Given: 5,
		ForDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_2", Given: 7,
		ForDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	total, err := svc.TotalGivenInMonth(ctx, "mms_1", 2025, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, total)

	total, err = svc.TotalGivenInMonth(ctx, "mms_1", 2025, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestSupplyBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_1", Given: 2, Taken: 3,
		ForDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, domain.RecordSupplyRequest{
		MembershipID: "mms_1", Given: 1, Taken: 4,
		ForDate: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	balance, err := svc.SupplyBalance(ctx, "mms_1")
	require.NoError(t, err)
	assert.Equal(t, 4, balance)

	balance, err = svc.SupplyBalance(ctx, "mms_none")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestListByMembershipNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for day := 1; day <= 3; day++ {
		_, err := svc.Record(ctx, domain.RecordSupplyRequest{
			MembershipID: "mms_1",
			Given:        1,
			ForDate:      time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	records, err := svc.ListByMembership(ctx, "mms_1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2025-03-03", records[0].ForDate)
	assert.Equal(t, "2025-03-01", records[2].ForDate)
}
