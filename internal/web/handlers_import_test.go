package web

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/parttrace/kicadbridge/internal/core"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		want        core.ImportFormat
		wantErr     bool
	}{
		{"xml extension", "board.xml", "", core.FormatNetlist, false},
		{"net extension", "board.net", "", core.FormatNetlist, false},
		{"csv extension", "parts.csv", "", core.FormatCSV, false},
		{"uppercase extension", "BOARD.XML", "", core.FormatNetlist, false},
		{"xml content type", "export", "application/xml", core.FormatNetlist, false},
		{"text xml content type", "export", "text/xml", core.FormatNetlist, false},
		{"csv content type", "export", "text/csv", core.FormatCSV, false},
		{"extension wins over content type", "board.xml", "text/csv", core.FormatNetlist, false},
		{"unsupported", "board.pdf", "application/pdf", "", true},
		{"no hints", "board", "application/octet-stream", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectFormat(tt.filename, tt.contentType)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("detectFormat(%q, %q) error = nil, want error", tt.filename, tt.contentType)
				}
				if !strings.Contains(err.Error(), "unsupported file type") {
					t.Errorf("error = %q, want unsupported file type", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("detectFormat(%q, %q) error = %v", tt.filename, tt.contentType, err)
			}
			if got != tt.want {
				t.Errorf("detectFormat(%q, %q) = %s, want %s", tt.filename, tt.contentType, got, tt.want)
			}
		})
	}
}

// uploadRequest builds a multipart POST to /v1/upload.json. An empty
// filename omits the file part entirely.
func uploadRequest(t *testing.T, filename, contentType, content string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}

	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/v1/upload.json", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestUploadNoFile(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, uploadRequest(t, "", "", "", map[string]string{"note": "hi"}))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestUploadUnsupportedFileType(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, uploadRequest(t, "board.pdf", "application/pdf", "%PDF-1.4", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	resp := decodeErrorResponse(t, w.Body.String())
	if resp.Code != "FILE001" {
		t.Errorf("code = %s, want FILE001", resp.Code)
	}
}

func TestUploadInvalidMappingJSON(t *testing.T) {
	s := newTestServer(testConfig())

	r := uploadRequest(t, "parts.csv", "text/csv", "id,ref\n1,R1\n",
		map[string]string{"mapping": "{not json"})
	w := doRequest(t, s, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	resp := decodeErrorResponse(t, w.Body.String())
	if resp.Code != "CFG002" {
		t.Errorf("code = %s, want CFG002", resp.Code)
	}
}

func TestUploadMissingTemplateBindings(t *testing.T) {
	s := newTestServer(testConfig())

	// Valid file and mapping, but no template parameters are bound in
	// the settings, so the import is rejected before it starts.
	r := uploadRequest(t, "parts.csv", "text/csv", "id,ref,footprint\n1,R1,R_0603\n",
		map[string]string{"mapping": `{"id":"id","reference":"ref","footprint":"footprint"}`})
	w := doRequest(t, s, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	resp := decodeErrorResponse(t, w.Body.String())
	if resp.Code != "CFG001" {
		t.Errorf("code = %s, want CFG001", resp.Code)
	}
}

func TestUploadFileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 64
	s := newTestServer(cfg)

	big := strings.Repeat("1,R1,R_0603\n", 50)
	w := doRequest(t, s, uploadRequest(t, "parts.csv", "text/csv", big, nil))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}

	resp := decodeErrorResponse(t, w.Body.String())
	if resp.Code != "FILE004" {
		t.Errorf("code = %s, want FILE004", resp.Code)
	}
}

func TestUsernameDefaultsToAnonymous(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/progress.json", nil)
	if got := username(r); got != "anonymous" {
		t.Errorf("username = %q, want %q", got, "anonymous")
	}
}
