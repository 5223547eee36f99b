package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/parttrace/kicadbridge/internal/core"
)

func TestListSettings(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var settings []settingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &settings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(settings) == 0 {
		t.Fatal("settings list is empty")
	}

	var found *settingResponse
	for i := range settings {
		if settings[i].Key == core.SettingEnableSubcategory {
			found = &settings[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("setting %s not in list", core.SettingEnableSubcategory)
	}
	if found.Kind != "bool" {
		t.Errorf("kind = %q, want %q", found.Kind, "bool")
	}
	if found.Value != "True" {
		t.Errorf("value = %q, want default %q", found.Value, "True")
	}
}

func TestGetSetting(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/settings/"+core.SettingIncludeIPN, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var setting settingResponse
	if err := json.Unmarshal(w.Body.Bytes(), &setting); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if setting.Key != core.SettingIncludeIPN {
		t.Errorf("key = %q, want %q", setting.Key, core.SettingIncludeIPN)
	}
	if setting.Kind != "choice" {
		t.Errorf("kind = %q, want %q", setting.Kind, "choice")
	}
	if len(setting.Choices) != 3 {
		t.Errorf("choices = %v, want 3 entries", setting.Choices)
	}
}

func TestGetUnknownSetting(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/settings/NO_SUCH_SETTING", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "CFG003" {
		t.Errorf("code = %s, want CFG003", resp.Code)
	}
}

func TestPutSettingInvalidChoice(t *testing.T) {
	s := newTestServer(testConfig())

	r := httptest.NewRequest(http.MethodPut, "/api/settings/"+core.SettingIncludeIPN,
		strings.NewReader(`{"value":"maybe"}`))
	w := doRequest(t, s, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "CFG003" {
		t.Errorf("code = %s, want CFG003", resp.Code)
	}
}

func TestPutUnknownSetting(t *testing.T) {
	s := newTestServer(testConfig())

	r := httptest.NewRequest(http.MethodPut, "/api/settings/NO_SUCH_SETTING",
		strings.NewReader(`{"value":"x"}`))
	w := doRequest(t, s, r)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "CFG003" {
		t.Errorf("code = %s, want CFG003", resp.Code)
	}
}

func TestConfigInvalidID(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/category/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "VAL001" {
		t.Errorf("code = %s, want VAL001", resp.Code)
	}
}

func TestCreateConfigMissingCategory(t *testing.T) {
	s := newTestServer(testConfig())

	r := httptest.NewRequest(http.MethodPost, "/api/category", strings.NewReader(`{}`))
	w := doRequest(t, s, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "VAL001" {
		t.Errorf("code = %s, want VAL001", resp.Code)
	}
}

func TestCreateConfigBadBody(t *testing.T) {
	s := newTestServer(testConfig())

	r := httptest.NewRequest(http.MethodPost, "/api/category", strings.NewReader(`{not json`))
	w := doRequest(t, s, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "invalid request body") {
		t.Errorf("body = %q, want invalid request body", w.Body.String())
	}
}

func TestCreateMappingMissingFields(t *testing.T) {
	s := newTestServer(testConfig())

	r := httptest.NewRequest(http.MethodPost,
		"/api/category/a2c51f8e-0af0-4c4e-bd6a-0f2e3f1a9d10/mappings",
		strings.NewReader(`{"parameter_value":"R_0603"}`))
	w := doRequest(t, s, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "parameter_value and footprint are required") {
		t.Errorf("body = %q, want missing field message", w.Body.String())
	}
}

func TestImportRunsInvalidLimit(t *testing.T) {
	s := newTestServer(testConfig())

	for _, limit := range []string{"abc", "0", "-3"} {
		w := doRequest(t, s, httptest.NewRequest(http.MethodGet, "/api/imports?limit="+limit, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", limit, w.Code, http.StatusBadRequest)
		}
	}
}

func TestImportProgressUnknownID(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodGet,
		"/api/imports/a2c51f8e-0af0-4c4e-bd6a-0f2e3f1a9d10/progress", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "IMP005" {
		t.Errorf("code = %s, want IMP005", resp.Code)
	}
}

func TestCancelImportUnknownID(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodPost,
		"/api/imports/a2c51f8e-0af0-4c4e-bd6a-0f2e3f1a9d10/cancel", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "IMP005" {
		t.Errorf("code = %s, want IMP005", resp.Code)
	}
}

func TestCancelImportInvalidID(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodPost, "/api/imports/not-a-uuid/cancel", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if resp := decodeErrorResponse(t, w.Body.String()); resp.Code != "VAL001" {
		t.Errorf("code = %s, want VAL001", resp.Code)
	}
}

func TestSeedNotConfigured(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodPost, "/api/admin/seed", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestResetUnavailable(t *testing.T) {
	s := newTestServer(testConfig())

	w := doRequest(t, s, httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
