package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/id"
)

func indexDoc(t *testing.T, s *MemorySearcher, kind Kind, fields map[string]string) id.ID {
	t.Helper()
	docID := id.Generate()
	err := s.Index(context.Background(), Document{
		Kind:   kind,
		ID:     docID,
		Value:  map[string]string{"id": docID.String()},
		Fields: fields,
	})
	require.NoError(t, err)
	return docID
}

func TestMemorySearcherMatchesSubstring(t *testing.T) {
	s := NewMemorySearcher()
	indexDoc(t, s, KindUsers, map[string]string{"name": "Abracadabra1337"})
	indexDoc(t, s, KindUsers, map[string]string{"name": "Somebody Else"})

	hits, err := s.Search(context.Background(), KindUsers, "Abra")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "<em>Abra</em>cad<em>abra</em>1337", hits[0].Highlights["name"])
}

func TestMemorySearcherCaseInsensitive(t *testing.T) {
	s := NewMemorySearcher()
	indexDoc(t, s, KindTickets, map[string]string{"title": "Broken Faucet"})

	hits, err := s.Search(context.Background(), KindTickets, "faucet")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Broken <em>Faucet</em>", hits[0].Highlights["title"])
}

func TestMemorySearcherHighlightsAroundCaseChangingRunes(t *testing.T) {
	s := NewMemorySearcher()
	// lowercasing grows "Ⱥ" (2 bytes -> 3) and shrinks "İ" (2 bytes -> 1);
	// highlights must still land on the match in the original text
	indexDoc(t, s, KindGroups, map[string]string{"title": "ȺȺȺȺ abc"})
	indexDoc(t, s, KindGroups, map[string]string{"title": "İstanbul abc"})

	hits, err := s.Search(context.Background(), KindGroups, "abc")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "ȺȺȺȺ <em>abc</em>", hits[0].Highlights["title"])
	assert.Equal(t, "İstanbul <em>abc</em>", hits[1].Highlights["title"])

	hits, err = s.Search(context.Background(), KindGroups, "ⱥ")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "<em>Ⱥ</em><em>Ⱥ</em><em>Ⱥ</em><em>Ⱥ</em> abc", hits[0].Highlights["title"])
}

func TestMemorySearcherNoMatch(t *testing.T) {
	s := NewMemorySearcher()
	indexDoc(t, s, KindGroups, map[string]string{"title": "Dormitory"})

	hits, err := s.Search(context.Background(), KindGroups, "library")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(context.Background(), KindUsers, "anything")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemorySearcherReindexReplaces(t *testing.T) {
	s := NewMemorySearcher()
	docID := indexDoc(t, s, KindGroups, map[string]string{"title": "Old Title"})

	err := s.Index(context.Background(), Document{
		Kind:   KindGroups,
		ID:     docID,
		Value:  map[string]string{"id": docID.String()},
		Fields: map[string]string{"title": "New Title"},
	})
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), KindGroups, "old")
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(context.Background(), KindGroups, "new")
	require.NoError(t, err)
	require.Len(t, hits, 1)
}
