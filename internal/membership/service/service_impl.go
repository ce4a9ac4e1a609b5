package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/clock"
	merchantdomain "github.com/smallbiznis/hisaab/internal/merchant/domain"
	"github.com/smallbiznis/hisaab/internal/membership/domain"
	supplydomain "github.com/smallbiznis/hisaab/internal/supply/domain"
	"github.com/smallbiznis/hisaab/pkg/repository"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	SupplySvc supplydomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	supplySvc supplydomain.Service
	repo      repository.Repository[domain.MerchantMembership]
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("membership.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		supplySvc: p.SupplySvc,
		repo:      repository.ProvideStore[domain.MerchantMembership](p.DB),
	}
}

func (s *Service) GetByID(ctx context.Context, membershipID string) (domain.MerchantMembership, error) {
	membershipID = strings.TrimSpace(membershipID)
	if membershipID == "" {
		return domain.MerchantMembership{}, domain.ErrInvalidID
	}

	membership, err := s.repo.FindOne(ctx, &domain.MerchantMembership{ID: membershipID})
	if err != nil {
		return domain.MerchantMembership{}, err
	}
	if membership == nil {
		return domain.MerchantMembership{}, domain.ErrNotFound
	}
	return *membership, nil
}

func (s *Service) GetByMemberAndMerchant(ctx context.Context, memberID, merchantID string) (domain.MerchantMembership, error) {
	membership, err := s.repo.FindOne(ctx, &domain.MerchantMembership{
		MemberID:   strings.TrimSpace(memberID),
		MerchantID: strings.TrimSpace(merchantID),
	})
	if err != nil {
		return domain.MerchantMembership{}, err
	}
	if membership == nil {
		return domain.MerchantMembership{}, domain.ErrNotFound
	}
	return *membership, nil
}

func (s *Service) ListByMerchant(ctx context.Context, merchantID string, activeOnly bool) ([]domain.MerchantMembership, error) {
	opts := []repository.QueryOption{repository.OrderBy("account ASC")}
	if activeOnly {
		opts = append(opts, repository.Where("is_active = ?", true))
	}

	items, err := s.repo.Find(ctx, &domain.MerchantMembership{MerchantID: merchantID}, opts...)
	if err != nil {
		return nil, err
	}

	memberships := make([]domain.MerchantMembership, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		memberships = append(memberships, *item)
	}
	return memberships, nil
}

func (s *Service) ListByMember(ctx context.Context, memberID string) ([]domain.MerchantMembership, error) {
	items, err := s.repo.Find(ctx, &domain.MerchantMembership{MemberID: strings.TrimSpace(memberID)},
		repository.OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}

	memberships := make([]domain.MerchantMembership, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		memberships = append(memberships, *item)
	}
	return memberships, nil
}

func (s *Service) ToggleActive(ctx context.Context, req domain.ToggleActiveRequest) (domain.MerchantMembership, error) {
	membership, err := s.GetByID(ctx, req.MembershipID)
	if err != nil {
		return domain.MerchantMembership{}, err
	}

	membership.IsActive = req.IsActive
	membership.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, &membership); err != nil {
		return domain.MerchantMembership{}, err
	}
	return membership, nil
}

func (s *Service) UpdatePricing(ctx context.Context, req domain.UpdatePricingRequest) (domain.MerchantMembership, error) {
	if req.ActualPrice.IsNegative() || req.DiscountedPrice.IsNegative() {
		return domain.MerchantMembership{}, domain.ErrInvalidPrice
	}
	if req.DiscountedPrice.LessThan(req.ActualPrice) {
		return domain.MerchantMembership{}, domain.ErrDiscountBelowActual
	}

	membership, err := s.GetByID(ctx, req.MembershipID)
	if err != nil {
		return domain.MerchantMembership{}, err
	}

	membership.ActualPrice = req.ActualPrice
	membership.DiscountedPrice = req.DiscountedPrice
	if req.IsMonthly != nil {
		membership.IsMonthly = *req.IsMonthly
	}
	membership.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, &membership); err != nil {
		return domain.MerchantMembership{}, err
	}
	return membership, nil
}

// InvoiceAmount computes the membership's bill for a period. Fixed-fee
// merchants and monthly memberships owe the discounted price; metered ones owe
// the quantity supplied in that period times the discounted price.
func (s *Service) InvoiceAmount(ctx context.Context, membership domain.MerchantMembership, year int, month int) (decimal.Decimal, error) {
	var merchant merchantdomain.Merchant
	if err := s.db.WithContext(ctx).First(&merchant, "id = ?", membership.MerchantID).Error; err != nil {
		return decimal.Zero, err
	}

	if merchant.IsFixedFee() || membership.IsMonthly {
		return membership.DiscountedPrice, nil
	}

	supplied, err := s.supplySvc.TotalGivenInMonth(ctx, membership.ID, year, month)
	if err != nil {
		return decimal.Zero, err
	}
	return membership.DiscountedPrice.Mul(decimal.NewFromInt(int64(supplied))), nil
}
