package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func newTestService() *Service {
	return NewService(nil, NewSettingsService(nil), ServiceConfig{})
}

// registerTemplateBindings populates the registry with bound reference,
// footprint and symbol templates so StartImport gets past binding
// resolution.
func registerTemplateBindings(t *testing.T) {
	t.Helper()
	ClearSettings()
	t.Cleanup(ClearSettings)

	defs := []SettingDefinition{
		{Key: SettingReferenceParameter, Default: "11", Kind: KindTemplateRef},
		{Key: SettingFootprintParameter, Default: "12", Kind: KindTemplateRef},
		{Key: SettingSymbolParameter, Default: "13", Kind: KindTemplateRef},
	}
	for _, def := range defs {
		RegisterSetting(def)
	}
}

func TestStartImportNoFile(t *testing.T) {
	svc := newTestService()

	_, err := svc.StartImport(context.Background(), ImportRequest{
		Username: "ada",
		Format:   FormatNetlist,
	})
	if !errors.Is(err, ErrNoFile) {
		t.Fatalf("err = %v, want ErrNoFile", err)
	}
	if code := MapError(err).Code; code != "IMP001" {
		t.Errorf("code = %s, want IMP001", code)
	}
}

func TestStartImportUnsupportedFormat(t *testing.T) {
	svc := newTestService()

	_, err := svc.StartImport(context.Background(), ImportRequest{
		Username: "ada",
		FileName: "board.pdf",
		Format:   ImportFormat("pdf"),
		File:     strings.NewReader("%PDF-1.4"),
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("err = %v, want unsupported file type error", err)
	}
	if code := MapError(err).Code; code != "FILE001" {
		t.Errorf("code = %s, want FILE001", code)
	}
}

func TestStartImportInvalidMapping(t *testing.T) {
	svc := newTestService()

	_, err := svc.StartImport(context.Background(), ImportRequest{
		Username: "ada",
		FileName: "parts.csv",
		Format:   FormatCSV,
		Mapping:  ColumnMapping{Reference: "ref"},
		File:     strings.NewReader("ref\nR1\n"),
	})
	if err == nil || !strings.Contains(err.Error(), "csv mapping") {
		t.Fatalf("err = %v, want csv mapping error", err)
	}
	if code := MapError(err).Code; code != "CFG002" {
		t.Errorf("code = %s, want CFG002", code)
	}
}

func TestStartImportMissingBindings(t *testing.T) {
	ClearSettings()
	svc := newTestService()

	_, err := svc.StartImport(context.Background(), ImportRequest{
		Username: "ada",
		FileName: "amp.xml",
		Format:   FormatNetlist,
		File:     strings.NewReader("<export/>"),
	})
	if err == nil || !strings.Contains(err.Error(), "missing parameter bindings") {
		t.Fatalf("err = %v, want missing bindings error", err)
	}
	if code := MapError(err).Code; code != "CFG001" {
		t.Errorf("code = %s, want CFG001", code)
	}
	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("active imports = %d, want 0 for a rejected start", got)
	}
}

func TestStartImportUserConflict(t *testing.T) {
	registerTemplateBindings(t)
	svc := newTestService()
	svc.byUser["ada"] = &activeImport{ID: "busy", Username: "ada"}

	_, err := svc.StartImport(context.Background(), ImportRequest{
		Username: "ada",
		FileName: "amp.xml",
		Format:   FormatNetlist,
		File:     strings.NewReader("<export/>"),
	})
	if !errors.Is(err, ErrImportRunning) {
		t.Fatalf("err = %v, want ErrImportRunning", err)
	}
	if code := MapError(err).Code; code != "IMP002" {
		t.Errorf("code = %s, want IMP002", code)
	}
	if got := svc.LimiterStatus().Active; got != 0 {
		t.Errorf("active imports = %d, want the slot released after the conflict", got)
	}
}

func TestStartImportDefaultsToAnonymous(t *testing.T) {
	registerTemplateBindings(t)
	svc := newTestService()
	svc.byUser["anonymous"] = &activeImport{ID: "busy", Username: "anonymous"}

	_, err := svc.StartImport(context.Background(), ImportRequest{
		FileName: "amp.xml",
		Format:   FormatNetlist,
		File:     strings.NewReader("<export/>"),
	})
	if !errors.Is(err, ErrImportRunning) {
		t.Fatalf("err = %v, want ErrImportRunning for the anonymous user", err)
	}
	if !strings.Contains(err.Error(), `"anonymous"`) {
		t.Errorf("err = %v, want it to name the anonymous user", err)
	}
}

func TestImportLookupUnknownID(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Progress("b2c7"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("Progress err = %v, want ErrImportNotFound", err)
	}
	if _, err := svc.Result(context.Background(), "b2c7"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("Result err = %v, want ErrImportNotFound", err)
	}
	if err := svc.CancelImport("b2c7"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("CancelImport err = %v, want ErrImportNotFound", err)
	}
	if _, err := svc.SubscribeProgress("b2c7"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("SubscribeProgress err = %v, want ErrImportNotFound", err)
	}
	if _, err := svc.SubscribeUser("nobody"); !errors.Is(err, ErrImportNotFound) {
		t.Errorf("SubscribeUser err = %v, want ErrImportNotFound", err)
	}
}
