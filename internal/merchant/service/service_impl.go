package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/id"
	"github.com/smallbiznis/hisaab/internal/merchant/domain"
	"github.com/smallbiznis/hisaab/internal/sequence"
	"github.com/smallbiznis/hisaab/pkg/repository"
)

const merchantCodeStart = 100

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  repository.Repository[domain.Merchant]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("merchant.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[domain.Merchant](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMerchantRequest) (domain.Merchant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Merchant{}, domain.ErrInvalidName
	}
	if !domain.ValidType(req.Type) {
		return domain.Merchant{}, domain.ErrInvalidType
	}
	owner := strings.TrimSpace(req.OwnerID)
	if owner == "" {
		return domain.Merchant{}, domain.ErrInvalidOwner
	}

	now := s.clock.Now()
	merchant := domain.Merchant{
		ID:                  id.New(id.PrefixMerchant, s.genID),
		Name:                name,
		Type:                req.Type,
		OwnerID:             owner,
		CommissionStructure: datatypes.JSONMap{},
		Metadata:            datatypes.JSONMap{},
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := sequence.Next(ctx, tx, sequence.ScopeMerchantCode, merchantCodeStart)
		if err != nil {
			return err
		}
		merchant.Code = domain.FormatCode(code)
		return s.repo.WithTrx(tx).Create(ctx, &merchant)
	})
	if err != nil {
		return domain.Merchant{}, err
	}

	s.log.Info("merchant created",
		zap.String("merchant_id", merchant.ID),
		zap.String("code", merchant.Code),
		zap.String("type", string(merchant.Type)))
	return merchant, nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Merchant, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return domain.Merchant{}, domain.ErrInvalidID
	}

	merchant, err := s.repo.FindOne(ctx, &domain.Merchant{ID: rawID})
	if err != nil {
		return domain.Merchant{}, err
	}
	if merchant == nil {
		return domain.Merchant{}, domain.ErrNotFound
	}
	return *merchant, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Merchant, error) {
	items, err := s.repo.Find(ctx, &domain.Merchant{}, repository.OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}

	merchants := make([]domain.Merchant, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		merchants = append(merchants, *item)
	}
	return merchants, nil
}

func (s *Service) UpdateCommissionStructure(ctx context.Context, req domain.UpdateCommissionRequest) (domain.Merchant, error) {
	merchant, err := s.GetByID(ctx, req.MerchantID)
	if err != nil {
		return domain.Merchant{}, err
	}
	if err := validateStructure(req.CommissionStructure); err != nil {
		return domain.Merchant{}, err
	}

	merchant.CommissionStructure = req.CommissionStructure
	merchant.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(ctx, &merchant); err != nil {
		return domain.Merchant{}, err
	}
	return merchant, nil
}

// validateStructure ensures each channel holds an ascending list of
// {max_credit, commission} tiers.
func validateStructure(structure datatypes.JSONMap) error {
	for channel, raw := range structure {
		if channel != "cash" && channel != "online" {
			return domain.ErrInvalidStructure
		}
		entries, ok := raw.([]any)
		if !ok {
			return domain.ErrInvalidStructure
		}
		tiers, err := domain.ParseTiers(entries)
		if err != nil {
			return err
		}
		last := decimal.Zero
		for i, tier := range tiers {
			if i > 0 && tier.MaxCredit.LessThanOrEqual(last) {
				return domain.ErrInvalidStructure
			}
			if tier.Commission.IsNegative() {
				return domain.ErrInvalidStructure
			}
			last = tier.MaxCredit
		}
	}
	return nil
}
