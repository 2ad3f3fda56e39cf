package search

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

// DBStore keeps search documents in a relational table. It backs deployments
// without Elasticsearch.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore returns a DocumentStore backed by db.
func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) Upsert(ctx context.Context, doc models.SearchDocument) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&doc).Error
}

func (s *DBStore) Query(ctx context.Context, q Query) ([]models.SearchDocument, int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.SearchDocument{})
	if q.Text != "" {
		tx = tx.Where("LOWER(message) LIKE ?", "%"+strings.ToLower(q.Text)+"%")
	}
	if q.PhoneNumber != "" {
		tx = tx.Where("phone_number = ?", q.PhoneNumber)
	}
	if !q.From.IsZero() {
		tx = tx.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		tx = tx.Where("created_at <= ?", q.To)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []models.SearchDocument
	err := tx.Order("created_at DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&docs).Error
	return docs, total, err
}
