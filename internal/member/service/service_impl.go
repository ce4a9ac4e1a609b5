package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/id"
	"github.com/smallbiznis/hisaab/internal/member/domain"
	membershipdomain "github.com/smallbiznis/hisaab/internal/membership/domain"
	"github.com/smallbiznis/hisaab/internal/sequence"
)

const (
	memberCodeStart        = 1000
	membershipAccountStart = 10000
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
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("member.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) CreateStaff(ctx context.Context, req domain.NewStaffMember) (domain.MerchantMember, error) {
	if err := validateIdentity(req.Name, req.PrimaryPhone); err != nil {
		return domain.MerchantMember{}, err
	}
	merchantID := strings.TrimSpace(req.MerchantID)
	if merchantID == "" {
		return domain.MerchantMember{}, domain.ErrInvalidMerchant
	}

	var member domain.MerchantMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		phone := strings.TrimSpace(req.PrimaryPhone)

		var count int64
		if err := tx.WithContext(ctx).Model(&domain.MerchantMember{}).
			Where("primary_phone = ?", phone).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrPhoneExists
		}

		var err error
		member, err = s.createMember(ctx, tx, req.Name, req.CNIC, phone, merchantID, domain.RoleStaff)
		return err
	})
	if err != nil {
		return domain.MerchantMember{}, err
	}

	s.log.Info("staff member created",
		zap.String("member_id", member.ID),
		zap.String("merchant_id", merchantID))
	return member, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.NewCustomerMember) (domain.MerchantMember, error) {
	if err := validateIdentity(req.Name, req.PrimaryPhone); err != nil {
		return domain.MerchantMember{}, err
	}
	merchantID := strings.TrimSpace(req.Membership.MerchantID)
	if merchantID == "" {
		return domain.MerchantMember{}, domain.ErrInvalidMerchant
	}
	if req.Membership.ActualPrice.IsNegative() || req.Membership.DiscountedPrice.IsNegative() {
		return domain.MerchantMember{}, membershipdomain.ErrInvalidPrice
	}
	if req.Membership.DiscountedPrice.LessThan(req.Membership.ActualPrice) {
		return domain.MerchantMember{}, membershipdomain.ErrDiscountBelowActual
	}

	var member domain.MerchantMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		phone := strings.TrimSpace(req.PrimaryPhone)

		// A person already registered with another merchant reuses their
		// identity; only the membership is new.
		var existing domain.MerchantMember
		err := tx.WithContext(ctx).Preload("Roles").First(&existing, "primary_phone = ?", phone).Error
		switch {
		case err == nil:
			member = existing
			if !member.HasRole(domain.RoleCustomer) {
				role := domain.MemberRole{MemberID: member.ID, Role: domain.RoleCustomer, CreatedAt: s.clock.Now()}
				if err := tx.WithContext(ctx).Create(&role).Error; err != nil {
					return err
				}
				member.Roles = append(member.Roles, role)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			member, err = s.createMember(ctx, tx, req.Name, req.CNIC, phone, "", domain.RoleCustomer)
			if err != nil {
				return err
			}
		default:
			return err
		}

		var count int64
		if err := tx.WithContext(ctx).Model(&membershipdomain.MerchantMembership{}).
			Where("member_id = ? AND merchant_id = ?", member.ID, merchantID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return membershipdomain.ErrDuplicate
		}

		account, err := sequence.Next(ctx, tx, sequence.ScopeMembershipAccount, membershipAccountStart)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		membership := membershipdomain.MerchantMembership{
			ID:              id.New(id.PrefixMembership, s.genID),
			Account:         strconv.FormatInt(account, 10),
			MemberID:        member.ID,
			MerchantID:      merchantID,
			Area:            strings.TrimSpace(req.Membership.Area),
			City:            strings.TrimSpace(req.Membership.City),
			Address:         strings.TrimSpace(req.Membership.Address),
			SecondaryPhone:  strings.TrimSpace(req.Membership.SecondaryPhone),
			IsActive:        true,
			IsMonthly:       req.Membership.IsMonthly,
			ActualPrice:     req.Membership.ActualPrice,
			DiscountedPrice: req.Membership.DiscountedPrice,
			Metadata:        datatypes.JSONMap{},
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return tx.WithContext(ctx).Create(&membership).Error
	})
	if err != nil {
		return domain.MerchantMember{}, err
	}

	s.log.Info("customer onboarded",
		zap.String("member_id", member.ID),
		zap.String("merchant_id", merchantID))
	return member, nil
}

func (s *Service) GetByID(ctx context.Context, memberID string) (domain.MerchantMember, error) {
	var member domain.MerchantMember
	err := s.db.WithContext(ctx).Preload("Roles").First(&member, "id = ?", strings.TrimSpace(memberID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MerchantMember{}, domain.ErrNotFound
		}
		return domain.MerchantMember{}, err
	}
	return member, nil
}

func (s *Service) GetByPhone(ctx context.Context, phone string) (domain.MerchantMember, error) {
	var member domain.MerchantMember
	err := s.db.WithContext(ctx).Preload("Roles").First(&member, "primary_phone = ?", strings.TrimSpace(phone)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MerchantMember{}, domain.ErrNotFound
		}
		return domain.MerchantMember{}, err
	}
	return member, nil
}

func (s *Service) UpdatePicture(ctx context.Context, memberID, pictureURL string) (domain.MerchantMember, error) {
	member, err := s.GetByID(ctx, memberID)
	if err != nil {
		return domain.MerchantMember{}, err
	}

	member.PictureURL = pictureURL
	member.UpdatedAt = s.clock.Now()
	if err := s.db.WithContext(ctx).Model(&domain.MerchantMember{}).
		Where("id = ?", member.ID).
		Updates(map[string]any{"picture_url": pictureURL, "updated_at": member.UpdatedAt}).Error; err != nil {
		return domain.MerchantMember{}, err
	}
	return member, nil
}

func (s *Service) ListByMerchant(ctx context.Context, merchantID string) ([]domain.MerchantMember, error) {
	var members []domain.MerchantMember
	err := s.db.WithContext(ctx).Preload("Roles").
		Where("merchant_id = ?", strings.TrimSpace(merchantID)).
		Or("id IN (?)", s.db.Model(&membershipdomain.MerchantMembership{}).
			Select("member_id").
			Where("merchant_id = ?", strings.TrimSpace(merchantID))).
		Order("code ASC").
		Find(&members).Error
	return members, err
}

func (s *Service) createMember(ctx context.Context, tx *gorm.DB, name, cnic, phone, merchantID string, role domain.Role) (domain.MerchantMember, error) {
	code, err := sequence.Next(ctx, tx, sequence.ScopeMemberCode, memberCodeStart)
	if err != nil {
		return domain.MerchantMember{}, err
	}

	now := s.clock.Now()
	member := domain.MerchantMember{
		ID:           id.New(id.PrefixMember, s.genID),
		Code:         strconv.FormatInt(code, 10),
		Name:         strings.TrimSpace(name),
		CNIC:         strings.TrimSpace(cnic),
		PrimaryPhone: strings.TrimSpace(phone),
		MerchantID:   merchantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
		return domain.MerchantMember{}, err
	}

	memberRole := domain.MemberRole{MemberID: member.ID, Role: role, CreatedAt: now}
	if err := tx.WithContext(ctx).Create(&memberRole).Error; err != nil {
		return domain.MerchantMember{}, err
	}
	member.Roles = []domain.MemberRole{memberRole}
	return member, nil
}

func validateIdentity(name, phone string) error {
	if strings.TrimSpace(name) == "" {
		return domain.ErrInvalidName
	}
	if strings.TrimSpace(phone) == "" {
		return domain.ErrInvalidPhone
	}
	return nil
}
