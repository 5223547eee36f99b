package core

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestColumnMappingValidate(t *testing.T) {
	tests := []struct {
		name    string
		mapping ColumnMapping
		wantErr string
	}{
		{
			name:    "full mapping",
			mapping: ColumnMapping{ID: "id", Reference: "ref", Footprint: "fp", Symbol: "sym", Datasheet: "ds"},
		},
		{
			name:    "id plus one writable column",
			mapping: ColumnMapping{ID: "id", Footprint: "fp"},
		},
		{
			name:    "missing id",
			mapping: ColumnMapping{Reference: "ref"},
			wantErr: "no id column",
		},
		{
			name:    "blank id",
			mapping: ColumnMapping{ID: "   ", Reference: "ref"},
			wantErr: "no id column",
		},
		{
			name:    "id only",
			mapping: ColumnMapping{ID: "id"},
			wantErr: "no writable column bound",
		},
		{
			name:    "datasheet is not writable on its own",
			mapping: ColumnMapping{ID: "id", Datasheet: "ds"},
			wantErr: "no writable column bound",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mapping.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestColumnMappingRoles(t *testing.T) {
	got := ColumnMapping{ID: "id", Footprint: "fp"}.roles()
	want := roleSet{footprint: true}
	if got != want {
		t.Errorf("roles = %+v, want %+v", got, want)
	}

	if got := (ColumnMapping{ID: "id", Reference: "r", Footprint: "f", Symbol: "s"}).roles(); got != allRoles() {
		t.Errorf("roles = %+v, want all roles", got)
	}
}

func TestParseCSV(t *testing.T) {
	data := strings.Join([]string{
		`Part ID,Ref,Footprint,Symbol,Datasheet`,
		`12,R1,Resistor_SMD:R_0603_1608Metric,Device:R,https://example.com/r.pdf`,
		`,,,,`,
		`="34",C2,Capacitor_SMD:C_0402_1005Metric,Device:C,`,
		` 56 , U3 `,
	}, "\n")

	mapping := ColumnMapping{
		ID:        "part id",
		Reference: "Ref",
		Footprint: "Footprint",
		Symbol:    "Symbol",
		Datasheet: "Datasheet",
	}

	comps, err := ParseCSV(strings.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}

	want := []Component{
		{
			Identifier: "12",
			Reference:  "R1",
			Footprint:  "Resistor_SMD:R_0603_1608Metric",
			Symbol:     "Device:R",
			Datasheet:  "https://example.com/r.pdf",
			LineHint:   2,
		},
		{
			Identifier: "34",
			Reference:  "C2",
			Footprint:  "Capacitor_SMD:C_0402_1005Metric",
			Symbol:     "Device:C",
			LineHint:   4,
		},
		{
			Identifier: "56",
			Reference:  "U3",
			LineHint:   5,
		},
	}

	if len(comps) != len(want) {
		t.Fatalf("got %d components, want %d", len(comps), len(want))
	}
	for i, w := range want {
		if comps[i] != w {
			t.Errorf("component %d = %+v, want %+v", i, comps[i], w)
		}
	}
}

func TestParseCSVMappingErrors(t *testing.T) {
	header := "id,ref,fp\n1,R1,foo\n"

	tests := []struct {
		name    string
		mapping ColumnMapping
		wantErr string
	}{
		{
			name:    "invalid mapping rejected before reading",
			mapping: ColumnMapping{Reference: "ref"},
			wantErr: "no id column",
		},
		{
			name:    "id column not in header",
			mapping: ColumnMapping{ID: "pk", Reference: "ref"},
			wantErr: `id column "pk" not in header`,
		},
		{
			name:    "reference column not in header",
			mapping: ColumnMapping{ID: "id", Reference: "designator"},
			wantErr: `reference column "designator" not in header`,
		},
		{
			name:    "footprint column not in header",
			mapping: ColumnMapping{ID: "id", Footprint: "package"},
			wantErr: `footprint column "package" not in header`,
		},
		{
			name:    "symbol column not in header",
			mapping: ColumnMapping{ID: "id", Reference: "ref", Symbol: "sym"},
			wantErr: `symbol column "sym" not in header`,
		},
		{
			name:    "datasheet column not in header",
			mapping: ColumnMapping{ID: "id", Reference: "ref", Datasheet: "ds"},
			wantErr: `datasheet column "ds" not in header`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(header), tt.mapping)
			if err == nil {
				t.Fatalf("ParseCSV succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	mapping := ColumnMapping{ID: "id", Reference: "ref"}

	_, err := ParseCSV(strings.NewReader(""), mapping)
	if err == nil || !strings.Contains(err.Error(), "empty file") {
		t.Errorf("error = %v, want empty file error", err)
	}

	comps, err := ParseCSV(strings.NewReader("id,ref\n"), mapping)
	if err != nil {
		t.Fatalf("ParseCSV failed on header-only input: %v", err)
	}
	if len(comps) != 0 {
		t.Errorf("got %d components from header-only input, want 0", len(comps))
	}
}

func TestParseCSVLazyQuotes(t *testing.T) {
	data := "id,ref\n1,2\" resistor\n"
	comps, err := ParseCSV(strings.NewReader(data), ColumnMapping{ID: "id", Reference: "ref"})
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(comps) != 1 {
		t.Fatalf("got %d components, want 1", len(comps))
	}
	if comps[0].Reference != `2" resistor` {
		t.Errorf("Reference = %q, want %q", comps[0].Reference, `2" resistor`)
	}
}

func TestParseCSVReadFailure(t *testing.T) {
	src := io.MultiReader(
		strings.NewReader("id,ref\n1,R1\n"),
		brokenReader{err: errors.New("connection reset")},
	)
	_, err := ParseCSV(src, ColumnMapping{ID: "id", Reference: "ref"})
	if err == nil {
		t.Fatal("ParseCSV succeeded, want error")
	}
	if !strings.Contains(err.Error(), "invalid csv") {
		t.Errorf("error = %q, want it to mention invalid csv", err)
	}
}

type brokenReader struct{ err error }

func (b brokenReader) Read([]byte) (int, error) { return 0, b.err }

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain  ", "plain"},
		{`="123"`, "123"},
		{`=SUM(A1)`, "SUM(A1)"},
		{`"quoted"`, "quoted"},
		{`'quoted'`, "quoted"},
		{"=", ""},
		{"", ""},
		{`="0042"`, "0042"},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Part ID", " Ref ", `="Footprint"`, "ref"})

	tests := []struct {
		key  string
		want int
	}{
		{"part id", 0},
		{"footprint", 2},
		{"ref", 3},
	}
	for _, tt := range tests {
		got, ok := idx[tt.key]
		if !ok {
			t.Errorf("key %q missing from index", tt.key)
			continue
		}
		if got != tt.want {
			t.Errorf("index[%q] = %d, want %d", tt.key, got, tt.want)
		}
	}
}
