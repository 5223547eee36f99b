package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parttrace/kicadbridge/internal/core"
	"github.com/parttrace/kicadbridge/internal/web/middleware"
)

// username resolves the import principal. Authenticated requests run
// under their API key name, everything else shares the anonymous slot,
// matching the per-user progress model of the desktop plugin.
func username(r *http.Request) string {
	if name := middleware.Principal(r.Context()); name != "" {
		return name
	}
	return "anonymous"
}

// detectFormat picks the import parser from the uploaded file name,
// falling back to the declared content type.
func detectFormat(filename, contentType string) (core.ImportFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xml", ".net":
		return core.FormatNetlist, nil
	case ".csv":
		return core.FormatCSV, nil
	}

	switch {
	case strings.Contains(contentType, "xml"):
		return core.FormatNetlist, nil
	case strings.Contains(contentType, "csv"):
		return core.FormatCSV, nil
	}

	return "", fmt.Errorf("unsupported file type %q", filename)
}

// handleUpload accepts a multipart netlist or CSV upload, runs the
// metadata import and replies with the final result. The request blocks
// until the import completes, like the desktop plugin's synchronous
// upload did; progress is observable in parallel via /v1/progress.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Import.MaxFileSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxErr.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	format, err := detectFormat(header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var mapping core.ColumnMapping
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			s.respondError(w, r, fmt.Errorf("invalid csv mapping: %w", err))
			return
		}
	}

	importID, err := s.service.StartImport(r.Context(), core.ImportRequest{
		Username: username(r),
		FileName: header.Filename,
		Format:   format,
		Mapping:  mapping,
		File:     core.NewUploadReader(file),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Result(r.Context(), importID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// progressResponse mirrors the desktop plugin's progress poll payload.
type progressResponse struct {
	Value    int    `json:"value"`
	FileName string `json:"file_name"`
}

// handleProgress reports the requesting user's current or most recent
// import as a percentage. KiCad's upload page polls this.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	percent, fileName, err := s.service.ProgressForUser(r.Context(), username(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, progressResponse{Value: percent, FileName: fileName})
}

// progressEvent is one SSE progress frame. The by-id admin poll reuses
// the same shape.
type progressEvent struct {
	ImportID string `json:"import_id"`
	Phase    string `json:"phase"`
	FileName string `json:"file_name"`
	Total    int    `json:"total"`
	Current  int    `json:"current"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	Percent  int    `json:"percent"`
	Error    string `json:"error,omitempty"`
}

func toProgressEvent(p core.ImportProgress) progressEvent {
	return progressEvent{
		ImportID: p.ImportID,
		Phase:    string(p.Phase),
		FileName: p.FileName,
		Total:    p.Total,
		Current:  p.Current,
		Updated:  p.Updated,
		Skipped:  p.Skipped,
		Percent:  p.Percent(),
		Error:    p.Error,
	}
}

// handleProgressStream streams an in-flight import over Server-Sent
// Events: the requesting user's run by default, or any run named by
// ?import_id=. The event id is the progress percentage, so a
// reconnecting client can pass lastEventId and skip frames it already
// rendered.
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	var lastEventID int
	if lastEventIDStr != "" {
		lastEventID, _ = strconv.Atoi(lastEventIDStr)
	}

	var progressCh <-chan core.ImportProgress
	var err error
	if importID := r.URL.Query().Get("import_id"); importID != "" {
		progressCh, err = s.service.SubscribeProgress(importID)
	} else {
		progressCh, err = s.service.SubscribeUser(username(r))
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				// Channel closed: import finished or was cancelled.
				fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}

			event := toProgressEvent(progress)
			if lastEventIDStr != "" && event.Percent <= lastEventID {
				continue
			}

			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", event.Percent, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
