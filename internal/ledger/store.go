package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

// Store is the authoritative persistence for ledger rows.
type Store interface {
	Create(ctx context.Context, r *models.DispatchRequest) error
	Get(ctx context.Context, id uint) (*models.DispatchRequest, error)
	Save(ctx context.Context, r *models.DispatchRequest) error
	FindLatestByPhone(ctx context.Context, phone string) (*models.DispatchRequest, error)
	FindByRequestID(ctx context.Context, requestID string) (*models.DispatchRequest, error)
}

// GormStore keeps ledger rows in the sms_requests table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, r *models.DispatchRequest) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) Get(ctx context.Context, id uint) (*models.DispatchRequest, error) {
	var r models.DispatchRequest
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err, "sms request %d", id)
	}
	return &r, nil
}

func (s *GormStore) Save(ctx context.Context, r *models.DispatchRequest) error {
	return s.db.WithContext(ctx).Save(r).Error
}

// FindLatestByPhone returns the newest row for phone; ties on created_at are
// broken by id.
func (s *GormStore) FindLatestByPhone(ctx context.Context, phone string) (*models.DispatchRequest, error) {
	var r models.DispatchRequest
	err := s.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		Order("id DESC").
		Take(&r).Error
	if err != nil {
		return nil, notFound(err, "sms request for phone %s", phone)
	}
	return &r, nil
}

func (s *GormStore) FindByRequestID(ctx context.Context, requestID string) (*models.DispatchRequest, error) {
	var r models.DispatchRequest
	err := s.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id DESC").
		Take(&r).Error
	if err != nil {
		return nil, notFound(err, "sms request %s", requestID)
	}
	return &r, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return fmt.Errorf("ledger: query: %w", err)
}
