package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

// OTPStore keeps OTP records in a SQL table with one row per
// (identifier, channel).
type OTPStore struct {
	db *gorm.DB
}

func NewOTPStore(db *gorm.DB) *OTPStore {
	return &OTPStore{db: db}
}

// Upsert inserts the record or overwrites the existing row for the pair.
func (s *OTPStore) Upsert(ctx context.Context, rec *models.OTPRecord) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}, {Name: "channel"}},
		DoUpdates: clause.AssignmentColumns([]string{"code", "verified", "expires_at", "created_at", "updated_at"}),
	}).Create(rec).Error
}

// MarkVerified runs a single conditional UPDATE so two concurrent
// verifications of the same code cannot both succeed.
func (s *OTPStore) MarkVerified(ctx context.Context, identifier string, channel models.OTPChannel, code string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.OTPRecord{}).
		Where("identifier = ? AND channel = ? AND code = ? AND verified = ? AND expires_at > ?",
			identifier, channel, code, false, now).
		Updates(map[string]interface{}{"verified": true, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *OTPStore) IsVerified(ctx context.Context, identifier string, channel models.OTPChannel, now time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.OTPRecord{}).
		Where("identifier = ? AND channel = ? AND verified = ? AND expires_at > ?", identifier, channel, true, now).
		Count(&count).Error
	return count > 0, err
}

func (s *OTPStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.OTPRecord{})
	return res.RowsAffected, res.Error
}
