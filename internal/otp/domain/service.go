package domain

import (
	"context"
	"errors"
	"time"
)

// RequestInput asks for a one-time code to be sent to a phone number.
type RequestInput struct {
	Phone   string
	Channel string // sms, whatsapp, email
}

// RequestResult reports when the caller may request another code.
type RequestResult struct {
	ResendAfter time.Duration `json:"resend_after_seconds"`
}

// VerifyInput exchanges a received code for an access token.
type VerifyInput struct {
	Phone string
	Code  string
}

// AuthToken is the signed credential handed out on a successful verify.
type AuthToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	MemberID    string    `json:"member_id"`
}

var (
	ErrInvalidPhone  = errors.New("invalid_phone")
	ErrResendTooSoon = errors.New("resend_too_soon")
	ErrInvalidCode   = errors.New("invalid_code")
	ErrCodeExpired   = errors.New("code_expired")
	ErrUnknownMember = errors.New("unknown_member")
)

type Service interface {
	// Request issues a fresh code, stores only its hash, and dispatches it
	// over the chosen channel. A second request inside the resend window
	// returns ErrResendTooSoon.
	Request(ctx context.Context, in RequestInput) (RequestResult, error)
	// Verify checks the code against the stored hash and, when the phone
	// belongs to a known member, returns a signed access token. The stored
	// code is consumed whether or not the check succeeds.
	Verify(ctx context.Context, in VerifyInput) (AuthToken, error)
}
