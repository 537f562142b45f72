package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/storefront/internal/models"
)

// KeyOTP holds one hash per pair: otp:{channel}:{identifier}.
const KeyOTP = "otp:%s:%s"

// markVerifiedScript flips verified only for a matching, unverified,
// unexpired code. KEYS[1]=key ARGV[1]=code ARGV[2]=now (unix ms).
var markVerifiedScript = redis.NewScript(`
local v = redis.call('HMGET', KEYS[1], 'code', 'verified', 'expires_at')
if not v[1] then return 0 end
if v[1] ~= ARGV[1] or v[2] ~= '0' then return 0 end
if tonumber(v[3]) <= tonumber(ARGV[2]) then return 0 end
redis.call('HSET', KEYS[1], 'verified', '1', 'updated_at', ARGV[2])
return 1
`)

// RedisOTPStore keeps OTP records as Redis hashes that expire with the code.
type RedisOTPStore struct {
	rdb *redis.Client
}

func NewRedisOTPStore(rdb *redis.Client) *RedisOTPStore {
	return &RedisOTPStore{rdb: rdb}
}

func otpKey(identifier string, channel models.OTPChannel) string {
	return fmt.Sprintf(KeyOTP, channel, identifier)
}

// Upsert replaces the hash and sets its expiry in one MULTI block.
func (s *RedisOTPStore) Upsert(ctx context.Context, rec *models.OTPRecord) error {
	key := otpKey(rec.Identifier, rec.Channel)
	verified := "0"
	if rec.Verified {
		verified = "1"
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code", rec.Code,
			"verified", verified,
			"created_at", rec.CreatedAt.UnixMilli(),
			"updated_at", rec.UpdatedAt.UnixMilli(),
			"expires_at", rec.ExpiresAt.UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, rec.ExpiresAt)
		return nil
	})
	return err
}

func (s *RedisOTPStore) MarkVerified(ctx context.Context, identifier string, channel models.OTPChannel, code string, now time.Time) (bool, error) {
	n, err := markVerifiedScript.Run(ctx, s.rdb, []string{otpKey(identifier, channel)}, code, now.UnixMilli()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisOTPStore) IsVerified(ctx context.Context, identifier string, channel models.OTPChannel, now time.Time) (bool, error) {
	vals, err := s.rdb.HMGet(ctx, otpKey(identifier, channel), "verified", "expires_at").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	verified, _ := vals[0].(string)
	expiresRaw, _ := vals[1].(string)
	if verified != "1" || expiresRaw == "" {
		return false, nil
	}
	expiresAt, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse expires_at: %w", err)
	}
	return expiresAt > now.UnixMilli(), nil
}

// DeleteExpired is a no-op: Redis drops the keys on their own.
func (s *RedisOTPStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
