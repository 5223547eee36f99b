package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/parttrace/kicadbridge/internal/core"
	"github.com/parttrace/kicadbridge/internal/inventory"
)

// categoryResponse is one row in the full category listing, which
// covers unconfigured categories too so configs can be attached by id.
type categoryResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	Path        string `json:"path"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.service.AllCategories(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryResponse{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			ParentID:    c.ParentID,
			Path:        c.PathString,
		})
	}
	writeJSON(w, out)
}

// categoryConfigBody is the request body for creating or updating a
// category config.
type categoryConfigBody struct {
	CategoryID             int64  `json:"category_id"`
	DefaultSymbol          string `json:"default_symbol"`
	DefaultFootprint       string `json:"default_footprint"`
	DefaultReference       string `json:"default_reference"`
	DefaultValueTemplateID *int64 `json:"default_value_template_id"`
	FootprintTemplateID    *int64 `json:"footprint_template_id"`
}

type categoryConfigResponse struct {
	ID                     string `json:"id"`
	CategoryID             int64  `json:"category_id"`
	DefaultSymbol          string `json:"default_symbol"`
	DefaultFootprint       string `json:"default_footprint"`
	DefaultReference       string `json:"default_reference"`
	DefaultValueTemplateID *int64 `json:"default_value_template_id,omitempty"`
	FootprintTemplateID    *int64 `json:"footprint_template_id,omitempty"`
}

func toConfigResponse(c inventory.CategoryConfig) categoryConfigResponse {
	return categoryConfigResponse{
		ID:                     c.ID.String(),
		CategoryID:             c.CategoryID,
		DefaultSymbol:          c.DefaultSymbol,
		DefaultFootprint:       c.DefaultFootprint,
		DefaultReference:       c.DefaultReference,
		DefaultValueTemplateID: c.DefaultValueTemplateID,
		FootprintTemplateID:    c.FootprintTemplateID,
	}
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.CategoryConfigs(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]categoryConfigResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, toConfigResponse(c))
	}
	writeJSON(w, out)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var body categoryConfigBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.CategoryID == 0 {
		s.respondError(w, r, errors.New("invalid id: category_id is required"))
		return
	}

	created, err := s.service.CreateCategoryConfig(r.Context(), inventory.CategoryConfig{
		CategoryID:             body.CategoryID,
		DefaultSymbol:          body.DefaultSymbol,
		DefaultFootprint:       body.DefaultFootprint,
		DefaultReference:       body.DefaultReference,
		DefaultValueTemplateID: body.DefaultValueTemplateID,
		FootprintTemplateID:    body.FootprintTemplateID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, toConfigResponse(created))
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	config, err := s.service.CategoryConfig(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toConfigResponse(config))
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var body categoryConfigBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.service.UpdateCategoryConfig(r.Context(), inventory.CategoryConfig{
		ID:                     id,
		CategoryID:             body.CategoryID,
		DefaultSymbol:          body.DefaultSymbol,
		DefaultFootprint:       body.DefaultFootprint,
		DefaultReference:       body.DefaultReference,
		DefaultValueTemplateID: body.DefaultValueTemplateID,
		FootprintTemplateID:    body.FootprintTemplateID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toConfigResponse(updated))
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteCategoryConfig(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type mappingBody struct {
	ParameterValue string `json:"parameter_value"`
	Footprint      string `json:"footprint"`
}

type mappingResponse struct {
	ID             string `json:"id"`
	ConfigID       string `json:"config_id"`
	ParameterValue string `json:"parameter_value"`
	Footprint      string `json:"footprint"`
}

func toMappingResponse(m inventory.FootprintMapping) mappingResponse {
	return mappingResponse{
		ID:             m.ID.String(),
		ConfigID:       m.ConfigID.String(),
		ParameterValue: m.ParameterValue,
		Footprint:      m.Footprint,
	}
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	mappings, err := s.service.ConfigMappings(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]mappingResponse, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, toMappingResponse(m))
	}
	writeJSON(w, out)
}

func (s *Server) handleCreateMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var body mappingBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.ParameterValue == "" || body.Footprint == "" {
		writeError(w, http.StatusBadRequest, "parameter_value and footprint are required")
		return
	}

	created, err := s.service.AddFootprintMapping(r.Context(), inventory.FootprintMapping{
		ConfigID:       id,
		ParameterValue: body.ParameterValue,
		Footprint:      body.Footprint,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, toMappingResponse(created))
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteFootprintMapping(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// settingResponse is one plugin setting with its definition and current
// value.
type settingResponse struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Kind        string   `json:"kind"`
	Default     string   `json:"default"`
	Choices     []string `json:"choices,omitempty"`
	Value       string   `json:"value"`
}

func (s *Server) settingResponseFor(def core.SettingDefinition) settingResponse {
	value, err := s.service.Settings().Value(def.Key)
	if err != nil {
		value = def.Default
	}
	return settingResponse{
		Key:         def.Key,
		Label:       def.Label,
		Description: def.Description,
		Kind:        def.Kind.String(),
		Default:     def.Default,
		Choices:     def.Choices,
		Value:       value,
	}
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	defs := core.AllSettings()
	out := make([]settingResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, s.settingResponseFor(def))
	}
	writeJSON(w, out)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	def, ok := core.SettingDef(key)
	if !ok {
		s.respondError(w, r, fmt.Errorf("unknown setting %q", key))
		return
	}
	writeJSON(w, s.settingResponseFor(def))
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.service.Settings().Set(r.Context(), key, body.Value); err != nil {
		s.respondError(w, r, err)
		return
	}

	def, _ := core.SettingDef(key)
	writeJSON(w, s.settingResponseFor(def))
}

type importRunResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FileName   string `json:"file_name"`
	Format     string `json:"format"`
	Components int    `json:"components"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	Datasheets int    `json:"datasheets"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// handleImportRuns lists recent import history, newest first.
func (s *Server) handleImportRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.service.ImportRuns(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	out := make([]importRunResponse, 0, len(runs))
	for _, run := range runs {
		resp := importRunResponse{
			ID:         run.ID.String(),
			Username:   run.Username,
			FileName:   run.FileName,
			Format:     run.Format,
			Components: run.Components,
			Updated:    run.Updated,
			Skipped:    run.Skipped,
			Datasheets: run.Datasheets,
			Status:     run.Status,
			Error:      run.Error,
			StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		}
		if run.FinishedAt != nil {
			resp.FinishedAt = run.FinishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, resp)
	}
	writeJSON(w, out)
}

// handleImportProgress reports the live state of one run by id. Unlike
// /v1/progress.json this addresses a specific import, so an operator
// can watch any user's run.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := s.service.Progress(id.String())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, toProgressEvent(p))
}

// handleCancelImport asks a running import to stop. The run notices at
// its next cancellation check and rolls back its transaction.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.CancelImport(id.String()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// handleReset truncates all plugin-owned state: configs, mappings,
// progress, history and settings. Inventory data is untouched.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.resetter == nil {
		writeError(w, http.StatusServiceUnavailable, "reset unavailable")
		return
	}

	if err := s.resetter.ResetAll(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "reset"})
}

// handleSeed re-applies the configured seed file.
func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	if s.seeder == nil || s.cfg.Seed.File == "" {
		writeError(w, http.StatusNotFound, "no seed file configured")
		return
	}

	if err := s.seeder.ApplyFile(r.Context(), s.cfg.Seed.File); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "seeded", "file": s.cfg.Seed.File})
}

// handleHealth answers load balancer checks with a live database ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// pathUUID parses a UUID path parameter.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
