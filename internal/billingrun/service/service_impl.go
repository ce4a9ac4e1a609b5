package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/billingrun/domain"
	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	"github.com/smallbiznis/hisaab/internal/id"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/observability/metrics"
	"github.com/smallbiznis/hisaab/internal/sequence"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	LedgerSvc     ledgerdomain.Service
	MembershipSvc membershipdomain.Service
	BillingCfg    *config.BillingConfigHolder
	ObsMetrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	ledgerSvc     ledgerdomain.Service
	membershipSvc membershipdomain.Service
	billingCfg    *config.BillingConfigHolder
	obsMetrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("billingrun.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		ledgerSvc:     p.LedgerSvc,
		membershipSvc: p.MembershipSvc,
		billingCfg:    p.BillingCfg,
		obsMetrics:    p.ObsMetrics,
	}
}

func (s *Service) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	merchantID := strings.TrimSpace(req.MerchantID)
	if merchantID == "" {
		return domain.GenerateResult{}, domain.ErrInvalidMerchant
	}

	now := s.clock.Now()
	year, month := req.Year, req.Month
	if year == 0 && month == 0 {
		year, month = now.Year(), int(now.Month())
	}
	if month < 1 || month > 12 || year < 2000 {
		return domain.GenerateResult{}, domain.ErrInvalidMonth
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	period := periodStart.Format("2006-01")

	// Issue date lands inside the target month even for back-dated runs: same
	// day-of-month as today, clamped to the month's last valid day.
	issuedAt := safeDate(now, year, month)

	var result domain.GenerateResult
	var merchant merchantdomain.Merchant
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).First(&merchant, "id = ?", merchantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrInvalidMerchant
			}
			return err
		}

		cancelled, err := s.voidStaleInvoices(ctx, tx, merchantID, periodStart, periodEnd, period, req.Actor)
		if err != nil {
			return err
		}
		result.Cancelled = cancelled

		memberships, err := s.selectUnbilled(ctx, tx, merchantID, periodStart, periodEnd)
		if err != nil {
			return err
		}

		for _, membership := range memberships {
			amount, err := s.membershipSvc.InvoiceAmount(ctx, membership, year, month)
			if err != nil {
				return err
			}
			if amount.LessThanOrEqual(decimal.Zero) {
				result.Skipped++
				continue
			}

			n, err := sequence.Next(ctx, tx, sequence.InvoiceScope(merchant.ID), invoicedomain.CodeSuffixStart)
			if err != nil {
				return err
			}

			inv := invoicedomain.Invoice{
				ID:           id.New(id.PrefixInvoice, s.genID),
				Code:         invoicedomain.FormatCode(merchant.Code, n),
				MerchantID:   merchant.ID,
				MembershipID: membership.ID,
				MemberID:     membership.MemberID,
				Status:       invoicedomain.StatusUnpaid,
				Type:         invoicedomain.TypeMonthly,
				TotalAmount:  amount,
				DueAmount:    amount,
				DueDate:      issuedAt.AddDate(0, 0, s.billingCfg.Get().DueDays),
				Metadata:     datatypes.JSONMap{ledgerdomain.MetaGeneratedPeriod: period},
				CreatedAt:    issuedAt,
				UpdatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&inv).Error; err != nil {
				return err
			}

			if _, err := s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
				MembershipID:    membership.ID,
				InvoiceID:       inv.ID,
				Type:            ledgerdomain.TypeBilling,
				TransactionType: ledgerdomain.TransactionDebit,
				Value:           amount,
				Actor:           req.Actor,
				Metadata: datatypes.JSONMap{
					ledgerdomain.MetaInvoiceCode:     inv.Code,
					ledgerdomain.MetaGeneratedPeriod: period,
				},
			}); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return domain.GenerateResult{}, err
	}

	if s.obsMetrics != nil && result.Created > 0 {
		s.obsMetrics.RecordInvoicesGenerated(merchant.Code, result.Created)
	}
	s.log.Info("monthly invoices generated",
		zap.String("merchant_id", merchantID),
		zap.String("period", period),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// voidStaleInvoices reverses and cancels the period's unpaid monthly invoices
// so regeneration never leaves a membership double-billed.
func (s *Service) voidStaleInvoices(ctx context.Context, tx *gorm.DB, merchantID string, periodStart, periodEnd time.Time, period, actor string) (int, error) {
	var stale []invoicedomain.Invoice
	err := tx.WithContext(ctx).
		Where("merchant_id = ? AND status = ? AND type = ? AND created_at >= ? AND created_at < ?",
			merchantID, invoicedomain.StatusUnpaid, invoicedomain.TypeMonthly, periodStart, periodEnd).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	for i := range stale {
		inv := &stale[i]
		if _, err := s.ledgerSvc.RecordTx(ctx, tx, ledgerdomain.RecordRequest{
			MembershipID:    inv.MembershipID,
			InvoiceID:       inv.ID,
			Type:            ledgerdomain.TypeBilling,
			TransactionType: ledgerdomain.TransactionAdjustment,
			Value:           inv.TotalAmount,
			Actor:           actor,
			Metadata: datatypes.JSONMap{
				ledgerdomain.MetaInvoiceCode:     inv.Code,
				ledgerdomain.MetaGeneratedPeriod: period,
			},
		}); err != nil {
			return 0, err
		}
	}

	if len(stale) > 0 {
		ids := make([]string, 0, len(stale))
		for _, inv := range stale {
			ids = append(ids, inv.ID)
		}
		if err := tx.WithContext(ctx).Model(&invoicedomain.Invoice{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"status":     invoicedomain.StatusCancelled,
				"due_amount": decimal.Zero,
				"updated_at": s.clock.Now(),
			}).Error; err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// selectUnbilled returns the merchant's active memberships that have no
// non-cancelled invoice in the period.
func (s *Service) selectUnbilled(ctx context.Context, tx *gorm.DB, merchantID string, periodStart, periodEnd time.Time) ([]membershipdomain.MerchantMembership, error) {
	billed := tx.Model(&invoicedomain.Invoice{}).
		Select("membership_id").
		Where("merchant_id = ? AND status <> ? AND created_at >= ? AND created_at < ?",
			merchantID, invoicedomain.StatusCancelled, periodStart, periodEnd)

	var memberships []membershipdomain.MerchantMembership
	err := tx.WithContext(ctx).
		Where("merchant_id = ? AND is_active = ?", merchantID, true).
		Where("id NOT IN (?)", billed).
		Order("account ASC").
		Find(&memberships).Error
	return memberships, err
}

// safeDate maps now's day-of-month into the target month, clamping to its last
// valid day (the 31st becomes the 30th in a 30-day month).
func safeDate(now time.Time, year, month int) time.Time {
	lastDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1).Day()
	day := now.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, time.Month(month), day,
		now.Hour(), now.Minute(), now.Second(), 0, time.UTC)
}
