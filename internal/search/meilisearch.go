package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Meilisearch is the hosted-search Searcher. Each Kind maps to one index;
// documents carry the entity view under "view" and the searchable text as
// top-level fields so the engine can highlight them.
type Meilisearch struct {
	client *meilisearch.Client
}

// NewMeilisearch builds a client from configuration. Connectivity is not
// verified here; the first Index call surfaces any problem.
func NewMeilisearch(cfg config.SearchConfig) *Meilisearch {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   cfg.Host,
		APIKey: cfg.APIKey,
	})
	return &Meilisearch{client: client}
}

// Index upserts the document into the kind's index.
func (s *Meilisearch) Index(_ context.Context, doc Document) error {
	record := map[string]any{
		"_view_id": doc.ID.String(),
		"view":     doc.Value,
	}
	for field, text := range doc.Fields {
		record[field] = text
	}
	task, err := s.client.Index(string(doc.Kind)).AddDocuments([]map[string]any{record}, "_view_id")
	if err != nil {
		return fmt.Errorf("index %s document: %w", doc.Kind, err)
	}
	if _, err := s.client.WaitForTask(task.TaskUID); err != nil {
		return fmt.Errorf("index %s document: %w", doc.Kind, err)
	}
	return nil
}

// Search queries the kind's index with highlighting on every attribute.
func (s *Meilisearch) Search(_ context.Context, kind Kind, query string) ([]Hit, error) {
	resp, err := s.client.Index(string(kind)).Search(query, &meilisearch.SearchRequest{
		AttributesToHighlight: []string{"*"},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind, err)
	}

	hits := make([]Hit, 0, len(resp.Hits))
	for _, raw := range resp.Hits {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		hit, err := decodeHit(record)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", kind, err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func decodeHit(record map[string]any) (Hit, error) {
	value, err := json.Marshal(record["view"])
	if err != nil {
		return Hit{}, err
	}

	highlights := make(map[string]string)
	if formatted, ok := record["_formatted"].(map[string]any); ok {
		for field, v := range formatted {
			if field == "_view_id" || field == "view" {
				continue
			}
			text, ok := v.(string)
			if !ok || !strings.Contains(text, "<em>") {
				continue
			}
			highlights[field] = text
		}
	}
	return Hit{Value: value, Highlights: highlights}, nil
}
