package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want string
	}{
		{"missing bindings", "missing parameter bindings: KICAD_FOOTPRINT_PARAMETER", "CFG001"},
		{"csv mapping beats invalid csv", "invalid csv mapping: no id column", "CFG002"},
		{"unknown setting", `unknown setting "KICAD_FOO"`, "CFG003"},
		{"invalid setting", `invalid setting value "maybe"`, "CFG003"},
		{"unsupported file type", `unsupported file type "pdf"`, "FILE001"},
		{"malformed netlist", "malformed netlist: XML syntax error on line 3", "FILE002"},
		{"invalid csv", `invalid csv: bare " in non-quoted field`, "FILE003"},
		{"body too large", "http: request body too large", "FILE004"},
		{"empty file", "empty file", "FILE005"},
		{"no file", "no file uploaded", "IMP001"},
		{"import running", `import already running for user "ada"`, "IMP002"},
		{"too many imports", "too many imports in progress, please try again later", "IMP003"},
		{"cancelled beats timeout", "import cancelled: timed out", "IMP004"},
		{"context canceled", "context canceled", "IMP004"},
		{"import not found", "import not found: 7f2c", "IMP005"},
		{"connection refused", "dial tcp 127.0.0.1:5432: connect: connection refused", "DB001"},
		{"duplicate key", "ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)", "DB002"},
		{"deadline exceeded", "context deadline exceeded", "DB003"},
		{"deadlock", "ERROR: deadlock detected (SQLSTATE 40P01)", "DB004"},
		{"invalid id", "invalid id: unknown category 9", "VAL001"},
		{"invalid url", `invalid datasheet url "ftp://files/x.pdf"`, "VAL002"},
		{"rate limit", "rate limit exceeded for 10.0.0.9", "RATE001"},
		{"not found", "not found", "RES001"},
		{"import not found beats not found", "import not found: stale", "IMP005"},
		{"case insensitive", "MALFORMED NETLIST", "FILE002"},
		{"unmatched", "something nobody expected", "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(errors.New(tt.err))
			if got.Code != tt.want {
				t.Errorf("MapError(%q).Code = %s, want %s", tt.err, got.Code, tt.want)
			}
			if got.Message == "" || got.Action == "" {
				t.Errorf("MapError(%q) has empty message or action: %+v", tt.err, got)
			}
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	if got := MapError(nil); got != (UserMessage{}) {
		t.Errorf("MapError(nil) = %+v, want zero value", got)
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(errors.New("empty file"))
	want := "The uploaded file is empty (Code: FILE005). Upload a netlist or CSV with component rows"
	if got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(errors.New("import not found: 9")) {
		t.Error("IsUserFacing = false for a mapped error, want true")
	}
	if IsUserFacing(errors.New("slice bounds out of range")) {
		t.Error("IsUserFacing = true for an unmapped error, want false")
	}
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
}

func TestNewUserError(t *testing.T) {
	if NewUserError(nil) != nil {
		t.Fatal("NewUserError(nil) != nil")
	}

	cause := fmt.Errorf("acquire import slot: %w", ErrTooManyImports)
	ue := NewUserError(cause)

	if ue.User.Code != "IMP003" {
		t.Errorf("Code = %s, want IMP003", ue.User.Code)
	}
	if ue.Error() != ue.User.Message {
		t.Errorf("Error() = %q, want the user message %q", ue.Error(), ue.User.Message)
	}
	if !errors.Is(ue, ErrTooManyImports) {
		t.Error("errors.Is(ue, ErrTooManyImports) = false, want unwrap to reach the cause")
	}
}
