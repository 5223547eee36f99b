package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ColumnMapping binds CSV header names to component roles. ID is
// required; at least one of Reference, Footprint or Symbol must be
// mapped for the import to have anything to write.
type ColumnMapping struct {
	ID        string `json:"id"`
	Reference string `json:"reference,omitempty"`
	Footprint string `json:"footprint,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Datasheet string `json:"datasheet,omitempty"`
}

func (m ColumnMapping) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("invalid csv mapping: no id column")
	}
	if m.Reference == "" && m.Footprint == "" && m.Symbol == "" {
		return errors.New("invalid csv mapping: no writable column bound")
	}
	return nil
}

// roles reports which of the three writable parameters this mapping
// feeds. Netlist imports always carry all three.
func (m ColumnMapping) roles() roleSet {
	return roleSet{
		reference: m.Reference != "",
		footprint: m.Footprint != "",
		symbol:    m.Symbol != "",
	}
}

// ParseCSV reads component rows from a CSV export. The first record
// is the header; mapped column names are matched case-insensitively
// after cell cleanup. Blank rows are dropped.
func ParseCSV(r io.Reader, mapping ColumnMapping) ([]Component, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	// Spreadsheet exports routinely carry ="123" artifacts and stray
	// quotes in unquoted fields. Lazy quoting keeps those rows readable
	// and CleanCell strips the leftovers.
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	idx := MakeHeaderIndex(header)
	col := func(name string) (int, bool) {
		if name == "" {
			return 0, false
		}
		i, ok := idx[strings.ToLower(CleanCell(name))]
		return i, ok
	}

	idCol, ok := col(mapping.ID)
	if !ok {
		return nil, fmt.Errorf("invalid csv mapping: id column %q not in header", mapping.ID)
	}
	refCol, refOK := col(mapping.Reference)
	if mapping.Reference != "" && !refOK {
		return nil, fmt.Errorf("invalid csv mapping: reference column %q not in header", mapping.Reference)
	}
	fpCol, fpOK := col(mapping.Footprint)
	if mapping.Footprint != "" && !fpOK {
		return nil, fmt.Errorf("invalid csv mapping: footprint column %q not in header", mapping.Footprint)
	}
	symCol, symOK := col(mapping.Symbol)
	if mapping.Symbol != "" && !symOK {
		return nil, fmt.Errorf("invalid csv mapping: symbol column %q not in header", mapping.Symbol)
	}
	dsCol, dsOK := col(mapping.Datasheet)
	if mapping.Datasheet != "" && !dsOK {
		return nil, fmt.Errorf("invalid csv mapping: datasheet column %q not in header", mapping.Datasheet)
	}

	cell := func(record []string, i int, ok bool) string {
		if !ok || i >= len(record) {
			return ""
		}
		return CleanCell(record[i])
	}

	var comps []Component
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}

		comps = append(comps, Component{
			Identifier: cell(record, idCol, true),
			Reference:  cell(record, refCol, refOK),
			Footprint:  cell(record, fpCol, fpOK),
			Symbol:     cell(record, symCol, symOK),
			Datasheet:  cell(record, dsCol, dsOK),
			LineHint:   line,
		})
	}
	return comps, nil
}

func isBlankRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// HeaderIndex maps lowercased, cleaned header names to their column
// positions. Duplicate names keep the last occurrence.
type HeaderIndex map[string]int

func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanCell(h))] = i
	}
	return idx
}

// CleanCell strips common CSV artifacts from a cell: surrounding
// whitespace and quotes, and the ="..." prefix spreadsheet tools use
// to force text cells.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
