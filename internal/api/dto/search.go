package dto

// SearchHit is one search match: the entity view plus per-field highlighted
// snippets.
type SearchHit[T any] struct {
	Value      T                 `json:"value"`
	Highlights map[string]string `json:"highlights"`
}

// SearchResults is the uniform search response shape.
type SearchResults[T any] struct {
	TopHits []SearchHit[T] `json:"top_hits"`
}
