package core

// importer.go runs one metadata import: parse the uploaded file, match
// components to parts and write their KiCad parameters.
//
// The whole run executes inside a single transaction with a savepoint
// per component. A malformed file or a transaction-level failure leaves
// zero writes; a bad component rolls back only its own savepoint and the
// run continues.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/parttrace/kicadbridge/internal/inventory"
)

var (
	// ErrNoFile is returned when the upload request carries no file part.
	ErrNoFile = errors.New("no file uploaded")

	// ErrImportRunning is returned when the user already has an import
	// in flight.
	ErrImportRunning = errors.New("import already running for user")

	// ErrImportCancelled marks a run stopped before completion.
	ErrImportCancelled = errors.New("import cancelled")

	// ErrImportNotFound is returned for unknown or expired import ids.
	ErrImportNotFound = errors.New("import not found")
)

// ContextCheckInterval is how many components are processed between
// cancellation checks.
var ContextCheckInterval = 50

// roleSet marks which of the writable parameters an import feeds.
// Netlists always carry all three; CSV imports write only the mapped
// roles.
type roleSet struct {
	reference bool
	footprint bool
	symbol    bool
}

func allRoles() roleSet {
	return roleSet{reference: true, footprint: true, symbol: true}
}

// importBindings holds the parameter template ids the import writes to.
// Only the templates for active roles are resolved.
type importBindings struct {
	reference int64
	footprint int64
	symbol    int64
}

// resolveBindings checks that every role the import will write has a
// template binding configured. Missing bindings reject the whole
// request before any work happens.
func resolveBindings(snap Snapshot, roles roleSet) (importBindings, error) {
	var (
		b       importBindings
		missing []string
	)

	bind := func(active bool, key string, dst *int64) {
		if !active {
			return
		}
		id, ok := snap.TemplateID(key)
		if !ok {
			missing = append(missing, key)
			return
		}
		*dst = id
	}

	bind(roles.reference, SettingReferenceParameter, &b.reference)
	bind(roles.footprint, SettingFootprintParameter, &b.footprint)
	bind(roles.symbol, SettingSymbolParameter, &b.symbol)

	if len(missing) > 0 {
		return importBindings{}, fmt.Errorf("missing parameter bindings: %s", strings.Join(missing, ", "))
	}
	return b, nil
}

// stripDigits drops decimal digits, reducing a designator to its
// prefix: "R12" becomes "R", "U3B" becomes "UB".
func stripDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validDatasheetURL reports whether raw is an absolute http(s) URL.
func validDatasheetURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// process drives one import from upload to recorded outcome. It runs in
// the import goroutine; ctx is the detached per-import context.
func (s *Service) process(ctx context.Context, imp *activeImport, file io.Reader) {
	start := time.Now()

	imp.update(func(p *ImportProgress) { p.Phase = PhaseReading })

	comps, err := s.parse(imp, file)
	if err != nil {
		s.finalize(imp, &ImportResult{
			ImportID: imp.ID,
			Username: imp.Username,
			FileName: imp.FileName,
			Format:   imp.Format,
			Duration: time.Since(start),
			Error:    err.Error(),
		})
		return
	}

	// The history row shares the live import id, so the id returned by
	// the imports listing addresses the run while it is still going.
	run, err := s.store.InsertImportRun(ctx, inventory.ImportRun{
		ID:       uuid.MustParse(imp.ID),
		Username: imp.Username,
		FileName: imp.FileName,
		Format:   string(imp.Format),
	})
	if err != nil {
		s.finalize(imp, &ImportResult{
			ImportID: imp.ID,
			Username: imp.Username,
			FileName: imp.FileName,
			Format:   imp.Format,
			Duration: time.Since(start),
			Error:    fmt.Sprintf("record import run: %v", err),
		})
		return
	}
	imp.runID = run.ID

	imp.update(func(p *ImportProgress) {
		p.Phase = PhaseMatching
		p.Total = len(comps)
	})
	s.persistProgress(imp)

	result := s.runComponents(ctx, imp, comps)
	result.Duration = time.Since(start)
	s.finalize(imp, result)
}

// parse extracts components from the upload. Both formats go through
// the same reader wrapper, so BOMs and broken encodings never reach the
// decoders.
func (s *Service) parse(imp *activeImport, file io.Reader) ([]Component, error) {
	r := NewUploadReader(file)

	switch imp.Format {
	case FormatNetlist:
		return ParseNetlist(r, imp.snap.String(SettingImportIDIdentifier))
	case FormatCSV:
		return ParseCSV(r, imp.Mapping)
	default:
		return nil, fmt.Errorf("unsupported file type %q", imp.Format)
	}
}

// runComponents writes every component inside one transaction. Per-row
// problems skip the component; transaction-level failures abort with
// the error recorded on the result.
func (s *Service) runComponents(ctx context.Context, imp *activeImport, comps []Component) *ImportResult {
	result := &ImportResult{
		ImportID:   imp.ID,
		Username:   imp.Username,
		FileName:   imp.FileName,
		Format:     imp.Format,
		Components: len(comps),
	}

	imp.update(func(p *ImportProgress) { p.Phase = PhaseWriting })

	override := imp.snap.Bool(SettingImportOverrideParams)
	idFallback := imp.snap.Bool(SettingImportIDFallback)
	addDatasheet := imp.snap.Bool(SettingImportAddDatasheet)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		result.Error = fmt.Sprintf("begin transaction: %v", err)
		return result
	}
	defer tx.Rollback(ctx)

	seen := make(map[string]struct{}, len(comps))

	skip := func(c Component, reason string) {
		result.Skipped++
		result.SkippedRows = append(result.SkippedRows, SkippedComponent{
			Line:       c.LineHint,
			Reference:  c.Reference,
			Identifier: c.Identifier,
			Reason:     reason,
		})
		imp.log.Debug("component skipped",
			"reference", c.Reference,
			"reason", reason,
		)
	}

	for i, comp := range comps {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			result.Error = cancelReason(ctx)
			return result
		}

		err := func() error {
			reference := stripDigits(comp.Reference)
			switch {
			case imp.roles.reference && reference == "":
				skip(comp, "missing reference")
				return nil
			case imp.roles.footprint && comp.Footprint == "":
				skip(comp, "missing footprint")
				return nil
			case imp.roles.symbol && comp.Symbol == "":
				skip(comp, "missing symbol")
				return nil
			case comp.Identifier == "":
				skip(comp, "missing part identifier")
				return nil
			}

			// Identifiers already handled this run are dropped without
			// a skip entry, matching the desktop behavior.
			if _, dup := seen[comp.Identifier]; dup {
				return nil
			}
			seen[comp.Identifier] = struct{}{}

			part, err := s.lookupPart(ctx, comp.Identifier, idFallback)
			if errors.Is(err, inventory.ErrNotFound) {
				skip(comp, fmt.Sprintf("part %q not found", comp.Identifier))
				return nil
			}
			if err != nil {
				return fmt.Errorf("look up part %q: %w", comp.Identifier, err)
			}

			sp := fmt.Sprintf("sp_%d", i)
			if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
				return fmt.Errorf("create savepoint: %w", err)
			}

			writeErr := func() error {
				if imp.roles.reference {
					if _, err := s.store.UpsertParameter(ctx, tx, part.ID, imp.bindings.reference, reference, override); err != nil {
						return err
					}
				}
				if imp.roles.footprint {
					if _, err := s.store.UpsertParameter(ctx, tx, part.ID, imp.bindings.footprint, comp.Footprint, override); err != nil {
						return err
					}
				}
				if imp.roles.symbol {
					if _, err := s.store.UpsertParameter(ctx, tx, part.ID, imp.bindings.symbol, comp.Symbol, override); err != nil {
						return err
					}
				}
				return nil
			}()
			if writeErr != nil {
				_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp)
				skip(comp, fmt.Sprintf("write parameters: %v", writeErr))
				return nil
			}

			if addDatasheet && comp.Datasheet != "" {
				if !validDatasheetURL(comp.Datasheet) {
					// Parameters are already written, so this is a
					// warning entry, not a skipped component.
					result.SkippedRows = append(result.SkippedRows, SkippedComponent{
						Line:       comp.LineHint,
						Reference:  comp.Reference,
						Identifier: comp.Identifier,
						Reason:     fmt.Sprintf("invalid datasheet url %q", comp.Datasheet),
					})
				} else {
					created, err := s.store.AddDatasheetLink(ctx, tx, part.ID, comp.Datasheet)
					if err != nil {
						_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp)
						skip(comp, fmt.Sprintf("attach datasheet: %v", err))
						return nil
					}
					if created {
						result.Datasheets++
					}
				}
			}

			if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
				return fmt.Errorf("release savepoint: %w", err)
			}
			result.Updated++
			return nil
		}()
		if err != nil {
			result.Error = err.Error()
			return result
		}

		imp.update(func(p *ImportProgress) {
			p.Current = i + 1
			p.Updated = result.Updated
			p.Skipped = result.Skipped
			p.Datasheets = result.Datasheets
		})
		s.persistProgress(imp)
	}

	if err := tx.Commit(ctx); err != nil {
		result.Error = fmt.Sprintf("commit: %v", err)
		return result
	}
	return result
}

// lookupPart resolves an identifier to a part: numeric identifiers are
// part ids, and with fallback enabled a missing id retries by name.
func (s *Service) lookupPart(ctx context.Context, identifier string, fallback bool) (inventory.Part, error) {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		part, lookupErr := s.store.PartByID(ctx, id)
		if lookupErr == nil {
			return part, nil
		}
		if !errors.Is(lookupErr, inventory.ErrNotFound) {
			return inventory.Part{}, lookupErr
		}
	}
	if !fallback {
		return inventory.Part{}, inventory.ErrNotFound
	}
	return s.store.PartByName(ctx, identifier)
}

// cancelReason renders a context error as the run's failure reason.
func cancelReason(ctx context.Context) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrImportCancelled.Error() + ": timed out"
	}
	return ErrImportCancelled.Error()
}
