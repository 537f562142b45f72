package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/utils"
)

// DefaultOTPTTL is how long an issued code stays usable.
const DefaultOTPTTL = 10 * time.Minute

// OTPStore persists one code per (identifier, channel).
type OTPStore interface {
	// Upsert replaces whatever record exists for the pair.
	Upsert(ctx context.Context, rec *models.OTPRecord) error
	// MarkVerified flips verified to true for an unverified, unexpired record
	// holding code. It reports whether a record was changed.
	MarkVerified(ctx context.Context, identifier string, channel models.OTPChannel, code string, now time.Time) (bool, error)
	IsVerified(ctx context.Context, identifier string, channel models.OTPChannel, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// EmailSender delivers an email message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// OTPService issues and checks one-time codes.
type OTPService struct {
	store    OTPStore
	email    EmailSender
	sms      SMSSender
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

type OTPOption func(*OTPService)

// WithOTPTTL overrides DefaultOTPTTL.
func WithOTPTTL(ttl time.Duration) OTPOption {
	return func(s *OTPService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithOTPClock(now func() time.Time) OTPOption { return func(s *OTPService) { s.now = now } }

func WithCodeGenerator(gen func() (string, error)) OTPOption {
	return func(s *OTPService) { s.generate = gen }
}

// NewOTPService constructs OTPService.
func NewOTPService(store OTPStore, email EmailSender, sms SMSSender, opts ...OTPOption) *OTPService {
	s := &OTPService{
		store:    store,
		email:    email,
		sms:      sms,
		ttl:      DefaultOTPTTL,
		now:      time.Now,
		generate: utils.GenerateOTPCode,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeIdentifier canonicalizes an identifier for its channel.
func NormalizeIdentifier(channel models.OTPChannel, identifier string) string {
	if channel == models.ChannelEmail {
		return utils.NormalizeEmail(identifier)
	}
	return utils.NormalizeMobile(identifier)
}

func (s *OTPService) checkIdentifier(channel models.OTPChannel, identifier string) (string, error) {
	if !channel.Valid() {
		return "", ValidationError("type must be one of [email mobile]")
	}
	if identifier == "" {
		return "", ValidationError("identifier is required")
	}

	normalized := NormalizeIdentifier(channel, identifier)
	switch channel {
	case models.ChannelEmail:
		if !utils.IsValidEmail(normalized) {
			return "", ValidationError("identifier must be a valid email")
		}
	case models.ChannelMobile:
		if !utils.IsValidMobile(normalized) {
			return "", ValidationError("identifier must be a valid mobile number")
		}
	}
	return normalized, nil
}

// RequestCode issues a fresh code for the pair, superseding any earlier one,
// and sends it through the channel. A delivery failure is reported but the
// stored code is kept.
func (s *OTPService) RequestCode(ctx context.Context, identifier string, channel models.OTPChannel) error {
	normalized, err := s.checkIdentifier(channel, identifier)
	if err != nil {
		return err
	}

	code, err := s.generate()
	if err != nil {
		return internalError(fmt.Errorf("generate otp: %w", err))
	}

	now := s.now()
	rec := &models.OTPRecord{
		Identifier: normalized,
		Channel:    channel,
		Code:       code,
		Verified:   false,
		ExpiresAt:  now.Add(s.ttl),
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := s.store.Upsert(ctx, rec); err != nil {
		metrics.OTPRequests.WithLabelValues(string(channel), "store_error").Inc()
		return internalError(fmt.Errorf("store otp: %w", err))
	}

	if err := s.dispatch(ctx, normalized, channel, code); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"channel":    channel,
			"identifier": normalized,
		}).Error("otp dispatch failed")
		metrics.OTPRequests.WithLabelValues(string(channel), "dispatch_error").Inc()
		return ErrDispatchFailed
	}

	metrics.OTPRequests.WithLabelValues(string(channel), "sent").Inc()
	return nil
}

func (s *OTPService) dispatch(ctx context.Context, to string, channel models.OTPChannel, code string) error {
	minutes := int(s.ttl / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, minutes)

	switch channel {
	case models.ChannelEmail:
		if s.email == nil {
			return fmt.Errorf("email sender not configured")
		}
		return s.email.Send(ctx, to, "Your verification code", body)
	case models.ChannelMobile:
		if s.sms == nil {
			return fmt.Errorf("sms sender not configured")
		}
		return s.sms.Send(ctx, to, body)
	}
	return fmt.Errorf("unsupported channel %q", channel)
}

// VerifyCode marks the pair verified when code matches an unexpired,
// unverified record. All other outcomes return ErrInvalidOTP.
func (s *OTPService) VerifyCode(ctx context.Context, identifier string, channel models.OTPChannel, code string) error {
	if !channel.Valid() {
		return ValidationError("type must be one of [email mobile]")
	}
	if identifier == "" || code == "" {
		return ValidationError("identifier and otp are required")
	}

	normalized := NormalizeIdentifier(channel, identifier)
	ok, err := s.store.MarkVerified(ctx, normalized, channel, code, s.now())
	if err != nil {
		return internalError(fmt.Errorf("verify otp: %w", err))
	}
	if !ok {
		metrics.OTPVerifications.WithLabelValues(string(channel), "rejected").Inc()
		return ErrInvalidOTP
	}

	metrics.OTPVerifications.WithLabelValues(string(channel), "verified").Inc()
	return nil
}

// IsVerified reports whether the pair holds a verified code that has not
// expired yet. It does not consume the verification.
func (s *OTPService) IsVerified(ctx context.Context, identifier string, channel models.OTPChannel) (bool, error) {
	if identifier == "" || !channel.Valid() {
		return false, nil
	}
	return s.store.IsVerified(ctx, NormalizeIdentifier(channel, identifier), channel, s.now())
}

// PurgeExpired removes records whose validity window has passed.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	metrics.OTPPurged.Add(float64(n))
	return n, nil
}
