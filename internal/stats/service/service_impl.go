package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	ledgerdomain "github.com/smallbiznis/hisaab/internal/ledger/domain"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/stats/domain"
	supplydomain "github.com/smallbiznis/hisaab/internal/supply/domain"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	LedgerSvc ledgerdomain.Service
	SupplySvc supplydomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	ledgerSvc ledgerdomain.Service
	supplySvc supplydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("stats.service"),
		ledgerSvc: p.LedgerSvc,
		supplySvc: p.SupplySvc,
	}
}

func (s *Service) ForMembership(ctx context.Context, membershipID string) (domain.CustomerStats, error) {
	if strings.TrimSpace(membershipID) == "" {
		return domain.CustomerStats{}, domain.ErrInvalidMembership
	}

	var membership membershipdomain.MerchantMembership
	if err := s.db.WithContext(ctx).First(&membership, "id = ?", membershipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CustomerStats{}, domain.ErrInvalidMembership
		}
		return domain.CustomerStats{}, err
	}
	var merchant merchantdomain.Merchant
	if err := s.db.WithContext(ctx).First(&merchant, "id = ?", membership.MerchantID).Error; err != nil {
		return domain.CustomerStats{}, err
	}

	totals, err := s.ledgerSvc.BillingTotals(ctx, membershipID)
	if err != nil {
		return domain.CustomerStats{}, err
	}

	stats := domain.CustomerStats{
		// Spend is everything the customer has paid in.
		TotalSpend:     totals.Credit,
		TotalRemaining: totals.Balance(),
		TotalSaved:     membership.TotalSaved,
		Metrics:        []domain.Metric{},
	}

	// Metered merchants carry a supply balance unless the membership is billed
	// as a flat monthly plan.
	if !merchant.IsFixedFee() && !membership.IsMonthly {
		balance, err := s.supplySvc.SupplyBalance(ctx, membershipID)
		if err != nil {
			return domain.CustomerStats{}, err
		}
		name := "Supply Balance"
		if merchant.Type == merchantdomain.TypeWater {
			name = "Bottles Balance"
		}
		stats.Metrics = append(stats.Metrics, domain.Metric{
			Name:  name,
			Value: decimal.NewFromInt(int64(balance)),
		})
	}
	return stats, nil
}
