package core

import "time"

// ImportFormat identifies the uploaded file flavor.
type ImportFormat string

const (
	FormatNetlist ImportFormat = "netlist"
	FormatCSV     ImportFormat = "csv"
)

// Component is one schematic component extracted from an upload,
// normalized so the XML and CSV paths feed the same import loop.
type Component struct {
	Reference  string // full designator, e.g. "R12"
	Footprint  string // raw footprint text
	Symbol     string // "lib:part" from the library source
	Datasheet  string // datasheet URL, when the export carries one
	Identifier string // raw part id field value
	LineHint   int    // CSV line number, 0 for netlists
}

// ImportPhase indicates the current stage of import processing.
type ImportPhase string

const (
	PhaseStarting  ImportPhase = "starting"
	PhaseReading   ImportPhase = "reading"
	PhaseMatching  ImportPhase = "matching"
	PhaseWriting   ImportPhase = "writing"
	PhaseComplete  ImportPhase = "complete"
	PhaseFailed    ImportPhase = "failed"
	PhaseCancelled ImportPhase = "cancelled"
)

// ImportProgress is the current state of an import operation.
type ImportProgress struct {
	ImportID   string
	Username   string
	Phase      ImportPhase
	FileName   string
	Format     ImportFormat
	Total      int    // components found in the file
	Current    int    // components processed so far
	Updated    int    // components whose part was written
	Skipped    int    // components skipped
	Datasheets int    // datasheet attachments created
	Error      string // non-empty when Phase is PhaseFailed
}

// Percent reports progress the way the desktop plugin did: the last
// component counts as 100 even when it is the only one.
func (p ImportProgress) Percent() int {
	if p.Total <= 1 {
		if p.Current > 0 || p.Phase == PhaseComplete {
			return 100
		}
		return 0
	}
	pct := (p.Current * 100) / (p.Total - 1)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// SkippedComponent records why one component was not imported.
type SkippedComponent struct {
	Line       int    `json:"line,omitempty"`
	Reference  string `json:"reference,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Reason     string `json:"reason"`
}

// ImportResult is the final outcome of an import operation.
type ImportResult struct {
	ImportID    string             `json:"import_id"`
	Username    string             `json:"username"`
	FileName    string             `json:"file_name"`
	Format      ImportFormat       `json:"format"`
	Components  int                `json:"components"`
	Updated     int                `json:"updated"`
	Skipped     int                `json:"skipped"`
	Datasheets  int                `json:"datasheets"`
	SkippedRows []SkippedComponent `json:"skipped_rows,omitempty"`
	Duration    time.Duration      `json:"-"`
	Error       string             `json:"error,omitempty"`
}
