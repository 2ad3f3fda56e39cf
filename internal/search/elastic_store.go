package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/ajayykmr/sms-dispatch-service/internal/config"
	"github.com/ajayykmr/sms-dispatch-service/internal/models"
)

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":                {"type": "keyword"},
      "requestId":         {"type": "keyword"},
      "phoneNumber":       {"type": "keyword"},
      "message":           {"type": "text"},
      "status":            {"type": "keyword"},
      "externalMessageId": {"type": "keyword"},
      "failureCode":       {"type": "keyword"},
      "failureComments":   {"type": "text"},
      "createdAt":         {"type": "date"},
      "updatedAt":         {"type": "date"}
    }
  }
}`

// NewElasticClient builds a client from cfg.
func NewElasticClient(cfg config.SearchConfig) (*elasticsearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errors.New("search: at least one elasticsearch address is required")
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
}

// ElasticStore keeps search documents in a single Elasticsearch index.
type ElasticStore struct {
	es    *elasticsearch.Client
	index string
}

// NewElasticStore returns a DocumentStore writing to index.
func NewElasticStore(es *elasticsearch.Client, index string) (*ElasticStore, error) {
	if es == nil {
		return nil, errors.New("search: elasticsearch client is required")
	}
	if index == "" {
		return nil, errors.New("search: index name is required")
	}
	return &ElasticStore{es: es, index: index}, nil
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (s *ElasticStore) EnsureIndex(ctx context.Context) error {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: check index %s: %w", s.index, err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("search: check index %s: %s", s.index, res.Status())
	}

	res, err = s.es.Indices.Create(s.index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("search: create index %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: create index %s: %s", s.index, res.String())
	}
	return nil
}

func (s *ElasticStore) Upsert(ctx context.Context, doc models.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("search: encode document %s: %w", doc.ID, err)
	}
	res, err := s.es.Index(s.index, bytes.NewReader(body),
		s.es.Index.WithContext(ctx),
		s.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("search: index document %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index document %s: %s", doc.ID, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (s *ElasticStore) Query(ctx context.Context, q Query) ([]models.SearchDocument, int64, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildQuery(q)); err != nil {
		return nil, 0, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(&buf),
		s.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: query %s: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search: query %s: %s", s.index, res.String())
	}

	var out searchResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, 0, fmt.Errorf("search: decode response: %w", err)
	}
	docs := make([]models.SearchDocument, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, out.Hits.Total.Value, nil
}

func buildQuery(q Query) map[string]any {
	filters := make([]map[string]any, 0, 3)
	if q.Text != "" {
		filters = append(filters, map[string]any{
			"match": map[string]any{
				"message": map[string]any{"query": q.Text, "operator": "and"},
			},
		})
	}
	if q.PhoneNumber != "" {
		filters = append(filters, map[string]any{
			"term": map[string]any{"phoneNumber": q.PhoneNumber},
		})
	}
	if !q.From.IsZero() || !q.To.IsZero() {
		r := map[string]any{}
		if !q.From.IsZero() {
			r["gte"] = q.From.UTC().Format(time.RFC3339Nano)
		}
		if !q.To.IsZero() {
			r["lte"] = q.To.UTC().Format(time.RFC3339Nano)
		}
		filters = append(filters, map[string]any{"range": map[string]any{"createdAt": r}})
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": filters},
		},
		"sort": []map[string]any{
			{"createdAt": map[string]any{"order": "desc"}},
		},
		"from": q.Offset,
		"size": q.Limit,
	}
}
