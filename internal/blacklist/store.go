package blacklist

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

// Store is the authoritative blacklist set.
type Store interface {
	Exists(ctx context.Context, phone string) (bool, error)
	Insert(ctx context.Context, phones []string) error
	Delete(ctx context.Context, phones []string) error
	List(ctx context.Context) ([]string, error)
}

// GormStore keeps blacklist entries in the blacklisted_numbers table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Exists(ctx context.Context, phone string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.BlacklistEntry{}).
		Where("phone_number = ?", phone).
		Count(&n).Error
	return n > 0, err
}

// Insert adds phones, leaving existing rows untouched.
func (s *GormStore) Insert(ctx context.Context, phones []string) error {
	if len(phones) == 0 {
		return nil
	}
	now := time.Now().UTC()
	entries := make([]models.BlacklistEntry, 0, len(phones))
	for _, p := range phones {
		entries = append(entries, models.BlacklistEntry{PhoneNumber: p, CreatedAt: now, UpdatedAt: now})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries).Error
}

// Delete removes phones; absent numbers are ignored.
func (s *GormStore) Delete(ctx context.Context, phones []string) error {
	if len(phones) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("phone_number IN ?", phones).
		Delete(&models.BlacklistEntry{}).Error
}

func (s *GormStore) List(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).
		Model(&models.BlacklistEntry{}).
		Order("phone_number").
		Pluck("phone_number", &out).Error
	return out, err
}
