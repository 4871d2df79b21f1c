package search

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/helpdesk/internal/id"
)

// Kind names a searchable entity collection.
type Kind string

const (
	KindUsers   Kind = "users"
	KindGroups  Kind = "groups"
	KindTickets Kind = "tickets"
)

// KnownKind reports whether k is a searchable collection.
func KnownKind(k Kind) bool {
	switch k {
	case KindUsers, KindGroups, KindTickets:
		return true
	}
	return false
}

// Document is one indexed entity: the view returned inside hits plus the
// text fields matching runs against.
type Document struct {
	Kind   Kind
	ID     id.ID
	Value  any
	Fields map[string]string
}

// Hit is one search match. Value is the indexed view; Highlights maps field
// names to snippets with matches wrapped in <em> tags.
type Hit struct {
	Value      json.RawMessage
	Highlights map[string]string
}

// Searcher indexes entity views and answers free-text queries. Ranking and
// matching are backend-specific; only the hit shape is fixed.
type Searcher interface {
	Index(ctx context.Context, doc Document) error
	Search(ctx context.Context, kind Kind, query string) ([]Hit, error)
}
