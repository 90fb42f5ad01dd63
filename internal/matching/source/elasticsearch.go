package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"grant-workers/internal/common/logger"
	"grant-workers/internal/matching/taxonomy"
	"grant-workers/internal/models"
)

var (
	ErrSearchFailed  = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexNotFound = errors.New("INDEX_NOT_FOUND")
)

const (
	DefaultGrantIndex = "grants"
	DefaultSearchSize = 50
	MaxSearchSize     = 300
)

type SearchQuery struct {
	Term   string
	Status taxonomy.GrantStatus
	Size   int
}

type SearchResult struct {
	Grants    []*models.Grant
	TotalHits int64
	Skipped   int
	Took      int64
}

// ElasticsearchGrantSearch runs keyword searches over the grant index. The
// relevance engine decides what is actually shown.
type ElasticsearchGrantSearch struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchGrantSearch(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchGrantSearch {
	if index == "" {
		index = DefaultGrantIndex
	}
	return &ElasticsearchGrantSearch{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "grant-search", "index": index}),
	}
}

// BuildSearchBody renders the query DSL for q.
func BuildSearchBody(q SearchQuery) map[string]interface{} {
	var must []interface{}
	var filter []interface{}

	if term := strings.TrimSpace(q.Term); term != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"title^3", "sponsor^2", "categories^2", "summary", "purpose_tags", "description"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	status := q.Status
	if status == "" {
		status = taxonomy.StatusOpen
	}
	filter = append(filter, map[string]interface{}{
		"term": map[string]interface{}{"status": string(status)},
	})
	filter = append(filter, map[string]interface{}{
		"exists": map[string]interface{}{"field": "url"},
	})

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"deadline_date": map[string]interface{}{"order": "asc", "missing": "_last"}},
		},
	}
}

func (s *ElasticsearchGrantSearch) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	size := q.Size
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > MaxSearchSize {
		size = MaxSearchSize
	}

	body, err := json.Marshal(BuildSearchBody(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}

	var r struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string        `json:"_id"`
				Source grantDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchFailed, err)
	}

	out := &SearchResult{TotalHits: r.Hits.Total.Value, Took: r.Took}
	for _, hit := range r.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		g, err := doc.toGrant()
		if err != nil {
			out.Skipped++
			s.logger.Warn("Skipping malformed grant document", map[string]interface{}{
				"grantId": doc.ID,
				"error":   err.Error(),
			})
			continue
		}
		out.Grants = append(out.Grants, g)
	}
	return out, nil
}
