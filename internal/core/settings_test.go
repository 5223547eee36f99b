package core

import (
	"context"
	"strings"
	"testing"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"y", true},
		{"Yes", true},
		{"TRUE", true},
		{"  on  ", true},
		{"t", true},
		{"ok", true},
		{"0", false},
		{"no", false},
		{"false", false},
		{"", false},
		{"maybe", false},
	}

	for _, tt := range tests {
		if got := ParseBool(tt.in); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSettingDefinitionValidate(t *testing.T) {
	choice := SettingDefinition{
		Key:     "TEST_CHOICE",
		Kind:    KindChoice,
		Choices: []string{"0", "False", "True"},
	}
	if err := choice.Validate("False"); err != nil {
		t.Errorf("Validate(False) failed: %v", err)
	}
	err := choice.Validate("false")
	if err == nil {
		t.Fatal("Validate(false) succeeded, want error for unknown choice")
	}
	if !strings.Contains(err.Error(), "invalid setting value") {
		t.Errorf("error = %q, want invalid setting value", err)
	}

	ref := SettingDefinition{Key: "TEST_REF", Kind: KindTemplateRef}
	if err := ref.Validate(""); err != nil {
		t.Errorf("Validate empty template ref failed: %v", err)
	}
	if err := ref.Validate("42"); err != nil {
		t.Errorf("Validate numeric template ref failed: %v", err)
	}
	if err := ref.Validate("4x2"); err == nil {
		t.Error("Validate(4x2) succeeded, want error for non-numeric template id")
	}

	free := SettingDefinition{Key: "TEST_STRING", Kind: KindString}
	if err := free.Validate("anything goes"); err != nil {
		t.Errorf("Validate on string setting failed: %v", err)
	}
}

func TestSettingsServiceDefaults(t *testing.T) {
	ClearSettings()
	t.Cleanup(ClearSettings)
	RegisterSetting(SettingDefinition{Key: "TEST_FLAG", Default: "True", Kind: KindBool})
	RegisterSetting(SettingDefinition{Key: "TEST_REF", Default: "", Kind: KindTemplateRef})

	svc := NewSettingsService(nil)

	value, err := svc.Value("TEST_FLAG")
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if value != "True" {
		t.Errorf("Value = %q, want the registered default", value)
	}

	flag, err := svc.Bool("TEST_FLAG")
	if err != nil || !flag {
		t.Errorf("Bool = %v, %v, want true, nil", flag, err)
	}

	if _, _, err := svc.TemplateID("TEST_REF"); err != nil {
		t.Errorf("TemplateID on unset binding failed: %v", err)
	}
	if _, ok, _ := svc.TemplateID("TEST_REF"); ok {
		t.Error("TemplateID reports a binding for an unset ref")
	}

	if _, err := svc.Value("TEST_MISSING"); err == nil || !strings.Contains(err.Error(), "unknown setting") {
		t.Errorf("Value on unregistered key = %v, want unknown setting error", err)
	}
}

func TestSettingsServiceSetValidation(t *testing.T) {
	ClearSettings()
	t.Cleanup(ClearSettings)
	RegisterSetting(SettingDefinition{
		Key:     "TEST_CHOICE",
		Default: "0",
		Kind:    KindChoice,
		Choices: []string{"0", "1"},
	})

	svc := NewSettingsService(nil)
	ctx := context.Background()

	if err := svc.Set(ctx, "TEST_MISSING", "x"); err == nil || !strings.Contains(err.Error(), "unknown setting") {
		t.Errorf("Set on unregistered key = %v, want unknown setting error", err)
	}
	if err := svc.Set(ctx, "TEST_CHOICE", "2"); err == nil || !strings.Contains(err.Error(), "invalid setting value") {
		t.Errorf("Set with invalid choice = %v, want invalid setting value error", err)
	}
}

func TestSnapshotViews(t *testing.T) {
	ClearSettings()
	t.Cleanup(ClearSettings)
	RegisterSetting(SettingDefinition{Key: "TEST_FLAG", Default: "False", Kind: KindBool})
	RegisterSetting(SettingDefinition{Key: "TEST_REF", Default: "7", Kind: KindTemplateRef})
	RegisterSetting(SettingDefinition{Key: "TEST_NAME", Default: "Fields", Kind: KindString})

	snap := NewSettingsService(nil).Snapshot()

	if got := snap.String("TEST_NAME"); got != "Fields" {
		t.Errorf("String = %q, want %q", got, "Fields")
	}
	if snap.Bool("TEST_FLAG") {
		t.Error("Bool = true, want false from default")
	}
	id, ok := snap.TemplateID("TEST_REF")
	if !ok || id != 7 {
		t.Errorf("TemplateID = %d, %v, want 7, true", id, ok)
	}
	if _, ok := snap.TemplateID("TEST_ABSENT"); ok {
		t.Error("TemplateID reports a binding for a key outside the snapshot")
	}
	if got := snap.String("TEST_ABSENT"); got != "" {
		t.Errorf("String on absent key = %q, want empty", got)
	}
}
