package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/id"
	"github.com/smallbiznis/hisaab/internal/supply/domain"
	"github.com/smallbiznis/hisaab/pkg/repository"
)

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
	repo  repository.Repository[domain.SupplyRecord]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("supply.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[domain.SupplyRecord](p.DB),
	}
}

func (s *Service) Record(ctx context.Context, req domain.RecordSupplyRequest) (domain.SupplyRecord, error) {
	membershipID := strings.TrimSpace(req.MembershipID)
	if membershipID == "" {
		return domain.SupplyRecord{}, domain.ErrInvalidMembership
	}
	if req.Given < 0 || req.Taken < 0 {
		return domain.SupplyRecord{}, domain.ErrNegativeQuantity
	}

	forDate := req.ForDate
	if forDate.IsZero() {
		forDate = s.clock.Now()
	}

	now := s.clock.Now()
	record := domain.SupplyRecord{
		ID:           id.New(id.PrefixSupply, s.genID),
		MembershipID: membershipID,
		ForDate:      forDate.UTC().Format(domain.DateLayout),
		Given:        req.Given,
		Taken:        req.Taken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Last write wins for the day: conflicting rows update quantities in place.
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "membership_id"}, {Name: "for_date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"given":      req.Given,
			"taken":      req.Taken,
			"updated_at": now,
		}),
	}).Create(&record).Error
	if err != nil {
		return domain.SupplyRecord{}, err
	}

	stored, err := s.repo.FindOne(ctx, &domain.SupplyRecord{
		MembershipID: membershipID,
		ForDate:      record.ForDate,
	})
	if err != nil {
		return domain.SupplyRecord{}, err
	}
	if stored == nil {
		return record, nil
	}
	return *stored, nil
}

func (s *Service) ListByMembership(ctx context.Context, membershipID string) ([]domain.SupplyRecord, error) {
	items, err := s.repo.Find(ctx, &domain.SupplyRecord{MembershipID: membershipID},
		repository.OrderBy("for_date DESC"))
	if err != nil {
		return nil, err
	}

	records := make([]domain.SupplyRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}
	return records, nil
}

func (s *Service) TotalGivenInMonth(ctx context.Context, membershipID string, year int, month int) (int, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)

	var total *int
	err := s.db.WithContext(ctx).Model(&domain.SupplyRecord{}).
		Select("SUM(given)").
		Where("membership_id = ? AND for_date LIKE ?", membershipID, prefix+"%").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (s *Service) SupplyBalance(ctx context.Context, membershipID string) (int, error) {
	var balance *int
	err := s.db.WithContext(ctx).Model(&domain.SupplyRecord{}).
		Select("SUM(taken) - SUM(given)").
		Where("membership_id = ?", membershipID).
		Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	if balance == nil {
		return 0, nil
	}
	return *balance, nil
}
