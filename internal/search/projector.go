package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/logger"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Criteria filters a search. Every non-zero field must match.
type Criteria struct {
	Text        string
	PhoneNumber string
	From        time.Time
	To          time.Time
}

// Empty reports whether no filter is set.
func (c Criteria) Empty() bool {
	return strings.TrimSpace(c.Text) == "" && strings.TrimSpace(c.PhoneNumber) == "" && c.From.IsZero() && c.To.IsZero()
}

// Query is what a DocumentStore executes.
type Query struct {
	Criteria
	Offset int
	Limit  int
}

// DocumentStore persists and queries search documents.
type DocumentStore interface {
	Upsert(ctx context.Context, doc models.SearchDocument) error
	Query(ctx context.Context, q Query) ([]models.SearchDocument, int64, error)
}

// Page is one zero-based page of search results.
type Page struct {
	Items       []models.DispatchRequest `json:"data"`
	Page        int                      `json:"currentPage"`
	PageSize    int                      `json:"pageSize"`
	Total       int64                    `json:"totalElements"`
	TotalPages  int                      `json:"totalPages"`
	HasNext     bool                     `json:"hasNext"`
	HasPrevious bool                     `json:"hasPrevious"`
}

// Projector mirrors ledger rows into the document store and serves searches
// from it. It is never the source of truth.
type Projector struct {
	store DocumentStore
	log   zerolog.Logger
}

// NewProjector wires a projector over store.
func NewProjector(store DocumentStore, log zerolog.Logger) (*Projector, error) {
	if store == nil {
		return nil, errors.New("search: document store dependency is required")
	}
	return &Projector{store: store, log: logger.Component(log, "search_projector")}, nil
}

// Project upserts the document for r. Callers decide whether a failure matters.
func (p *Projector) Project(ctx context.Context, r *models.DispatchRequest) error {
	if r == nil {
		return errors.New("search: nil record")
	}
	if err := p.store.Upsert(ctx, models.NewSearchDocument(r)); err != nil {
		return fmt.Errorf("search: project %d: %w", r.ID, err)
	}
	return nil
}

// Search runs c against the document store. page is zero-based.
func (p *Projector) Search(ctx context.Context, c Criteria, page, pageSize int) (Page, error) {
	c.Text = strings.TrimSpace(c.Text)
	c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
	if c.Empty() {
		return Page{}, apperr.Validation("at least one of text, phoneNumber or date range is required")
	}
	if !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From) {
		return Page{}, apperr.Validation("endTime must not be before startTime")
	}
	// sqlite keeps timestamps as text, so bounds must share the stored zone
	c.From, c.To = utc(c.From), utc(c.To)
	if page < 0 {
		page = 0
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	docs, total, err := p.store.Query(ctx, Query{Criteria: c, Offset: page * pageSize, Limit: pageSize})
	if err != nil {
		return Page{}, fmt.Errorf("search: query: %w", err)
	}

	items := make([]models.DispatchRequest, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.ToDispatchRequest())
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Page{
		Items:       items,
		Page:        page,
		PageSize:    pageSize,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page+1 < totalPages,
		HasPrevious: page > 0,
	}, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
