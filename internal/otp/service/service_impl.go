package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/smallbiznis/hisaab/internal/clock"
	"github.com/smallbiznis/hisaab/internal/config"
	memberdomain "github.com/smallbiznis/hisaab/internal/member/domain"
	"github.com/smallbiznis/hisaab/internal/otp/domain"
	"github.com/smallbiznis/hisaab/internal/providers"
)

const (
	keyCode   = "otp:code:%s"
	keyResend = "otp:resend:%s"
)

type Params struct {
	fx.In

	Redis      *redis.Client
	Log        *zap.Logger
	Cfg        config.Config
	BillingCfg *config.BillingConfigHolder
	Clock      clock.Clock
	MemberSvc  memberdomain.Service
	Senders    providers.SenderFactory
}

type Service struct {
	redis      *redis.Client
	log        *zap.Logger
	cfg        config.Config
	billingCfg *config.BillingConfigHolder
	clock      clock.Clock
	memberSvc  memberdomain.Service
	senders    providers.SenderFactory
}

func New(p Params) domain.Service {
	return &Service{
		redis:      p.Redis,
		log:        p.Log.Named("otp.service"),
		cfg:        p.Cfg,
		billingCfg: p.BillingCfg,
		clock:      p.Clock,
		memberSvc:  p.MemberSvc,
		senders:    p.Senders,
	}
}

func (s *Service) Request(ctx context.Context, in domain.RequestInput) (domain.RequestResult, error) {
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return domain.RequestResult{}, err
	}
	channel := providers.Channel(strings.TrimSpace(in.Channel))
	if channel == "" {
		channel = providers.ChannelSMS
	}
	sender, err := s.senders.ForChannel(channel)
	if err != nil {
		return domain.RequestResult{}, err
	}

	cfg := s.billingCfg.Get()
	resendWindow := time.Duration(cfg.OTPResendSeconds) * time.Second
	ok, err := s.redis.SetNX(ctx, fmt.Sprintf(keyResend, phone), "1", resendWindow).Result()
	if err != nil {
		return domain.RequestResult{}, err
	}
	if !ok {
		return domain.RequestResult{}, domain.ErrResendTooSoon
	}

	code, err := randomDigits(cfg.OTPLength)
	if err != nil {
		return domain.RequestResult{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return domain.RequestResult{}, err
	}

	ttl := time.Duration(cfg.OTPTTLSeconds) * time.Second
	if err := s.redis.Set(ctx, fmt.Sprintf(keyCode, phone), string(hash), ttl).Err(); err != nil {
		return domain.RequestResult{}, err
	}

	message := fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
	if err := sender.Send(ctx, phone, message); err != nil {
		return domain.RequestResult{}, err
	}

	s.log.Info("otp issued", zap.String("phone", phone), zap.String("channel", string(channel)))
	return domain.RequestResult{ResendAfter: resendWindow}, nil
}

func (s *Service) Verify(ctx context.Context, in domain.VerifyInput) (domain.AuthToken, error) {
	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return domain.AuthToken{}, err
	}
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return domain.AuthToken{}, domain.ErrInvalidCode
	}

	// Single use: the stored hash is consumed even when the code is wrong.
	hash, err := s.redis.GetDel(ctx, fmt.Sprintf(keyCode, phone)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.AuthToken{}, domain.ErrCodeExpired
	}
	if err != nil {
		return domain.AuthToken{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return domain.AuthToken{}, domain.ErrInvalidCode
	}

	member, err := s.memberSvc.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, memberdomain.ErrNotFound) {
			return domain.AuthToken{}, domain.ErrUnknownMember
		}
		return domain.AuthToken{}, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(time.Duration(s.cfg.AuthTokenExpiry) * time.Minute)
	claims := domain.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   member.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Phone: phone,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.cfg.AuthJWTSecret))
	if err != nil {
		return domain.AuthToken{}, err
	}

	s.log.Info("otp verified", zap.String("phone", phone), zap.String("member_id", member.ID))
	return domain.AuthToken{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		MemberID:    member.ID,
	}, nil
}

func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < 7 || len(digits) > 15 {
		return "", domain.ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", domain.ErrInvalidPhone
		}
	}
	return phone, nil
}

func randomDigits(n int) (string, error) {
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", d.Int64())
	}
	return b.String(), nil
}
