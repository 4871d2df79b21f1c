package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/search"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// SearchHandler exposes full-text search over users, groups and tickets.
type SearchHandler struct {
	searcher search.Searcher
}

// NewSearchHandler constructs handler.
func NewSearchHandler(searcher search.Searcher) *SearchHandler {
	return &SearchHandler{searcher: searcher}
}

// Search handles GET /api/search/:kind?q=...
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	kind := search.Kind(c.Params("kind"))
	if !search.KnownKind(kind) {
		return apperrors.NewNotFound("search collection")
	}

	hits, err := h.searcher.Search(c.UserContext(), kind, c.Query("q"))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	results := dto.SearchResults[json.RawMessage]{
		TopHits: make([]dto.SearchHit[json.RawMessage], 0, len(hits)),
	}
	for _, hit := range hits {
		results.TopHits = append(results.TopHits, dto.SearchHit[json.RawMessage]{
			Value:      hit.Value,
			Highlights: hit.Highlights,
		})
	}
	return success(c, http.StatusOK, results)
}
