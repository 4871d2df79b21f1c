package search

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/spec-kit/helpdesk/internal/id"
)

// MemorySearcher is a process-local Searcher doing case-insensitive
// substring matching. It backs tests and single-node deployments.
type MemorySearcher struct {
	mu    sync.RWMutex
	kinds map[Kind]*memoryIndex
}

type memoryIndex struct {
	order []id.ID
	docs  map[id.ID]memoryDoc
}

type memoryDoc struct {
	value  json.RawMessage
	fields map[string]string
}

// NewMemorySearcher constructs an empty index.
func NewMemorySearcher() *MemorySearcher {
	return &MemorySearcher{kinds: make(map[Kind]*memoryIndex)}
}

// Index upserts the document.
func (s *MemorySearcher) Index(_ context.Context, doc Document) error {
	value, err := json.Marshal(doc.Value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.kinds[doc.Kind]
	if idx == nil {
		idx = &memoryIndex{docs: make(map[id.ID]memoryDoc)}
		s.kinds[doc.Kind] = idx
	}
	if _, ok := idx.docs[doc.ID]; !ok {
		idx.order = append(idx.order, doc.ID)
	}
	fields := make(map[string]string, len(doc.Fields))
	for k, v := range doc.Fields {
		fields[k] = v
	}
	idx.docs[doc.ID] = memoryDoc{value: value, fields: fields}
	return nil
}

// Search returns documents with at least one field containing the query,
// matched case-insensitively. Matches are wrapped in <em> tags in the
// highlight snippets, mirroring what the hosted search backend produces.
func (s *MemorySearcher) Search(_ context.Context, kind Kind, query string) ([]Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.kinds[kind]
	if idx == nil {
		return []Hit{}, nil
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	hits := []Hit{}
	for _, docID := range idx.order {
		doc := idx.docs[docID]
		highlights := make(map[string]string)
		for field, text := range doc.fields {
			if needle == "" {
				highlights[field] = text
				continue
			}
			if snippet, ok := highlight(text, needle); ok {
				highlights[field] = snippet
			}
		}
		if len(highlights) == 0 {
			continue
		}
		hits = append(hits, Hit{Value: doc.value, Highlights: highlights})
	}
	return hits, nil
}

func highlight(text, needle string) (string, bool) {
	// Lowercasing can change a rune's byte length ("İ" shrinks, "Ⱥ" grows),
	// so offsets into the lowered string cannot index the original directly.
	// back maps every lowered byte offset to the start of its source rune.
	var lowered []byte
	var back []int
	for i, r := range text {
		lr := unicode.ToLower(r)
		for n := utf8.RuneLen(lr); n > 0; n-- {
			back = append(back, i)
		}
		lowered = utf8.AppendRune(lowered, lr)
	}
	back = append(back, len(text))

	lower := string(lowered)
	if !strings.Contains(lower, needle) {
		return "", false
	}
	var b strings.Builder
	written := 0
	for pos := 0; ; {
		found := strings.Index(lower[pos:], needle)
		if found < 0 {
			b.WriteString(text[written:])
			break
		}
		start := back[pos+found]
		end := back[pos+found+len(needle)]
		b.WriteString(text[written:start])
		b.WriteString("<em>")
		b.WriteString(text[start:end])
		b.WriteString("</em>")
		written = end
		pos += found + len(needle)
	}
	return b.String(), true
}
