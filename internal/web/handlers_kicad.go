package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/parttrace/kicadbridge/internal/schema"
)

// handleIndex announces the category and part endpoints. KiCad fetches
// this once when a library connection is configured and builds every
// later request from the two URLs.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimRight(s.service.BaseURL(), "/")
	writeJSON(w, schema.IndexResponse{
		Categories: base + "/v1/categories.json",
		Parts:      base + "/v1/parts/",
	})
}

// handleCategories lists the configured categories, named by their full
// path so nested categories stay distinguishable in the KiCad chooser.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.Categories(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, schema.CategoryList(categories))
}

// handleCategoryParts lists part previews for one category.
func (s *Server) handleCategoryParts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	parts, err := s.service.PartsForCategory(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, schema.PartList(parts))
}

// handlePartDetail returns the fully resolved part: symbol, footprint,
// fields and visibility flags.
func (s *Server) handlePartDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	detail, err := s.service.PartDetail(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, schema.PartDetailFrom(detail))
}

// handleFieldVisibility is KiCad's settings-discovery endpoint: every
// known field name mapped to "1" or "0".
func (s *Server) handleFieldVisibility(w http.ResponseWriter, r *http.Request) {
	fields, err := s.service.FieldVisibilityMap(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, schema.FieldVisibilityResponse{ShowField: fields})
}

// pathID parses a numeric id path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
