// Package search indexes notices into Elasticsearch and serves full-text
// queries over them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	commonerrors "housing-radar/internal/common/errors"
	"housing-radar/internal/common/logger"
	"housing-radar/internal/models"
)

// Service wraps the Elasticsearch client for one index.
type Service struct {
	es     *elasticsearch.Client
	logger logger.Logger
	index  string
}

func NewService(es *elasticsearch.Client, index string, log logger.Logger) *Service {
	return &Service{
		es:     es,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
		index:  index,
	}
}

type noticeDocument struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Platform string  `json:"platform"`
	Link     string  `json:"link"`
	Region   string  `json:"region"`
	Address  string  `json:"address"`
	Deposit  int64   `json:"deposit"`
	Rent     int64   `json:"rent"`
	AreaM2   float64 `json:"area_m2"`
}

// IndexNotice writes one notice document, keyed by the store id so repeated
// indexing is idempotent.
func (s *Service) IndexNotice(ctx context.Context, n *models.HousingNotice) error {
	doc := noticeDocument{
		ID:       n.ID,
		Title:    n.Title,
		Platform: string(n.Platform),
		Link:     n.Link,
		Region:   n.Region,
		Address:  n.Address,
		Deposit:  n.Deposit,
		Rent:     n.Rent,
		AreaM2:   n.AreaM2,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return commonerrors.Wrap(commonerrors.ErrCodeIndexFailed, "encoding notice document", err, false)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: strconv.FormatInt(n.ID, 10),
		Body:       bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, s.es)
	if err != nil {
		return commonerrors.Wrap(commonerrors.ErrCodeIndexFailed, "indexing notice", err, true)
	}
	defer res.Body.Close()

	if res.IsError() {
		return commonerrors.New(commonerrors.ErrCodeIndexFailed,
			fmt.Sprintf("index request returned %s", res.Status()), true)
	}
	return nil
}

// Hit is one search match.
type Hit struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Platform string  `json:"platform"`
	Link     string  `json:"link"`
	Region   string  `json:"region"`
	Rent     int64   `json:"rent"`
	Score    float64 `json:"score"`
}

// Query runs a full-text match over title, region and address.
func (s *Service) Query(ctx context.Context, query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}

	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "region", "address"},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, commonerrors.Wrap(commonerrors.ErrCodeSearchFailed, "encoding search query", err, false)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, commonerrors.Wrap(commonerrors.ErrCodeSearchFailed, "search request failed", err, true)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, commonerrors.New(commonerrors.ErrCodeSearchFailed,
			fmt.Sprintf("search request returned %s", res.Status()), true)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64        `json:"_score"`
				Source noticeDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, commonerrors.Wrap(commonerrors.ErrCodeSearchFailed, "decoding search response", err, false)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{
			ID:       h.Source.ID,
			Title:    h.Source.Title,
			Platform: h.Source.Platform,
			Link:     h.Source.Link,
			Region:   h.Source.Region,
			Rent:     h.Source.Rent,
			Score:    h.Score,
		})
	}
	return hits, nil
}
