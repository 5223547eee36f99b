package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parttrace/kicadbridge/internal/inventory"
	"github.com/parttrace/kicadbridge/internal/logging"
)

// DefaultImportTimeout bounds a single import run.
var DefaultImportTimeout = 10 * time.Minute

// resultRetention is how long a finished import stays queryable before
// it is dropped from the in-memory table.
const resultRetention = 5 * time.Minute

// ImportMetrics receives importer outcomes. internal/metrics provides
// the Prometheus-backed implementation; nil disables recording.
type ImportMetrics interface {
	ImportStarted()
	ImportFinished(format, status string, duration time.Duration)
	ComponentsProcessed(outcome string, count int)
}

// ServiceConfig carries the tunables for a Service.
type ServiceConfig struct {
	// BaseURL is the externally visible server URL, used for absolute
	// links in part fields.
	BaseURL string

	ImportTimeout time.Duration
	MaxConcurrent int
	QueueWait     time.Duration

	Metrics ImportMetrics
}

// Service is the bridge's business logic: the part catalog served to
// KiCad and the metadata import pipeline.
type Service struct {
	store    *inventory.Store
	settings *SettingsService
	limiter  *ImportLimiter
	metrics  ImportMetrics
	baseURL  string
	timeout  time.Duration

	mu      sync.RWMutex
	imports map[string]*activeImport
	byUser  map[string]*activeImport
}

type activeImport struct {
	ID       string
	Username string
	FileName string
	Format   ImportFormat
	Mapping  ColumnMapping
	Cancel   context.CancelFunc
	Done     chan struct{}

	runID    uuid.UUID
	roles    roleSet
	bindings importBindings
	snap     Snapshot
	log      *slog.Logger

	finishOnce sync.Once

	mu        sync.Mutex
	progress  ImportProgress
	result    *ImportResult
	listeners []chan ImportProgress
}

// NewService creates the service. The limiter is sized from cfg; zero
// values fall back to the package defaults.
func NewService(store *inventory.Store, settings *SettingsService, cfg ServiceConfig) *Service {
	timeout := cfg.ImportTimeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}

	return &Service{
		store:    store,
		settings: settings,
		limiter:  NewImportLimiter(cfg.MaxConcurrent, cfg.QueueWait),
		metrics:  cfg.Metrics,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		timeout:  timeout,
		imports:  make(map[string]*activeImport),
		byUser:   make(map[string]*activeImport),
	}
}

// Settings exposes the settings service for the admin surface.
func (s *Service) Settings() *SettingsService {
	return s.settings
}

// LimiterStatus reports import slot occupancy.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// ImportRequest describes one upload handed to StartImport.
type ImportRequest struct {
	Username string
	FileName string
	Format   ImportFormat
	Mapping  ColumnMapping // CSV only
	File     io.Reader
}

// StartImport validates the request, takes an import slot and starts
// the run in the background. It returns the import id; use
// SubscribeProgress for updates and Result for the outcome.
//
// Configuration problems (bad mapping, missing template bindings) are
// returned here, before any slot is taken or any byte is read.
func (s *Service) StartImport(ctx context.Context, req ImportRequest) (string, error) {
	if req.File == nil {
		return "", ErrNoFile
	}
	if req.Username == "" {
		req.Username = "anonymous"
	}

	roles := allRoles()
	switch req.Format {
	case FormatNetlist:
	case FormatCSV:
		if err := req.Mapping.Validate(); err != nil {
			return "", err
		}
		roles = req.Mapping.roles()
	default:
		return "", fmt.Errorf("unsupported file type %q", req.Format)
	}

	snap := s.settings.Snapshot()
	bindings, err := resolveBindings(snap, roles)
	if err != nil {
		return "", err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return "", err
	}

	importID := uuid.New().String()
	importCtx, cancel := context.WithTimeout(context.Background(), s.timeout)

	imp := &activeImport{
		ID:       importID,
		Username: req.Username,
		FileName: req.FileName,
		Format:   req.Format,
		Mapping:  req.Mapping,
		Cancel:   cancel,
		Done:     make(chan struct{}),
		roles:    roles,
		bindings: bindings,
		snap:     snap,
		log: logging.WithFields(ctx,
			"import_id", importID,
			"username", req.Username,
		),
		progress: ImportProgress{
			ImportID: importID,
			Username: req.Username,
			Phase:    PhaseStarting,
			FileName: req.FileName,
			Format:   req.Format,
		},
	}

	s.mu.Lock()
	if _, busy := s.byUser[req.Username]; busy {
		s.mu.Unlock()
		cancel()
		s.limiter.Release()
		return "", fmt.Errorf("%w %q", ErrImportRunning, req.Username)
	}
	s.imports[importID] = imp
	s.byUser[req.Username] = imp
	s.mu.Unlock()

	imp.log.Info("import started", "file", req.FileName, "format", req.Format)
	if s.metrics != nil {
		s.metrics.ImportStarted()
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				imp.log.Error("panic in import", "panic", r)
				s.finalize(imp, &ImportResult{
					ImportID: importID,
					Username: imp.Username,
					FileName: imp.FileName,
					Format:   imp.Format,
					Error:    fmt.Sprintf("internal error: %v", r),
				})
			}
			// Done closes before the listener channels, so late
			// subscribers always see a terminal snapshot.
			close(imp.Done)
			imp.closeListeners()

			s.mu.Lock()
			if s.byUser[imp.Username] == imp {
				delete(s.byUser, imp.Username)
			}
			s.mu.Unlock()

			s.cleanup(importID, resultRetention)
			cancel()
			s.limiter.Release()
		}()
		s.process(importCtx, imp, req.File)
	}()

	return importID, nil
}

// finalize records the outcome of a run exactly once: the result, the
// terminal progress state, the run row and the metrics.
func (s *Service) finalize(imp *activeImport, result *ImportResult) {
	imp.finishOnce.Do(func() {
		status := "complete"
		phase := PhaseComplete
		switch {
		case strings.HasPrefix(result.Error, ErrImportCancelled.Error()):
			status, phase = "cancelled", PhaseCancelled
		case result.Error != "":
			status, phase = "failed", PhaseFailed
		}

		imp.mu.Lock()
		imp.result = result
		imp.mu.Unlock()

		imp.update(func(p *ImportProgress) {
			p.Phase = phase
			p.Error = result.Error
			p.Updated = result.Updated
			p.Skipped = result.Skipped
			p.Datasheets = result.Datasheets
			if phase == PhaseComplete {
				p.Current = p.Total
			}
		})
		s.persistProgress(imp)

		if imp.runID != uuid.Nil {
			// The import context may already be gone; recording the
			// outcome gets its own deadline.
			ctx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelFn()
			err := s.store.FinishImportRun(ctx, imp.runID, status,
				result.Components, result.Updated, result.Skipped, result.Datasheets, result.Error)
			if err != nil {
				imp.log.Warn("record import outcome", "error", err)
			}
		}

		if s.metrics != nil {
			s.metrics.ImportFinished(string(imp.Format), status, result.Duration)
			s.metrics.ComponentsProcessed("updated", result.Updated)
			s.metrics.ComponentsProcessed("skipped", result.Skipped)
			s.metrics.ComponentsProcessed("datasheet", result.Datasheets)
		}

		imp.log.Info("import finished",
			"status", status,
			"components", result.Components,
			"updated", result.Updated,
			"skipped", result.Skipped,
			"datasheets", result.Datasheets,
			"duration", result.Duration,
		)
	})
}

// persistProgress writes the per-user progress row so polling clients
// see updates from any server process.
func (s *Service) persistProgress(imp *activeImport) {
	p := imp.snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SetImportProgress(ctx, imp.Username, p.Percent(), p.FileName); err != nil {
		imp.log.Warn("persist import progress", "error", err)
	}
}

func (s *Service) find(importID string) (*activeImport, error) {
	s.mu.RLock()
	imp, ok := s.imports[importID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}
	return imp, nil
}

// SubscribeProgress returns a channel receiving progress updates for an
// import. The channel closes when the run finishes.
func (s *Service) SubscribeProgress(importID string) (<-chan ImportProgress, error) {
	imp, err := s.find(importID)
	if err != nil {
		return nil, err
	}
	return imp.subscribe(), nil
}

// SubscribeUser attaches to the user's in-flight import, if any.
func (s *Service) SubscribeUser(username string) (<-chan ImportProgress, error) {
	s.mu.RLock()
	imp, ok := s.byUser[username]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for user %q", ErrImportNotFound, username)
	}
	return imp.subscribe(), nil
}

// CancelImport stops an in-flight import. The run notices at its next
// cancellation check and rolls back.
func (s *Service) CancelImport(importID string) error {
	imp, err := s.find(importID)
	if err != nil {
		return err
	}
	imp.Cancel()
	return nil
}

// Result blocks until the import completes and returns its outcome.
func (s *Service) Result(ctx context.Context, importID string) (*ImportResult, error) {
	imp, err := s.find(importID)
	if err != nil {
		return nil, err
	}

	select {
	case <-imp.Done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.result, nil
}

// Progress returns the current progress without blocking.
func (s *Service) Progress(importID string) (ImportProgress, error) {
	imp, err := s.find(importID)
	if err != nil {
		return ImportProgress{}, err
	}
	return imp.snapshot(), nil
}

// ProgressForUser reports the user's current or most recent import as a
// percent and file name. In-flight imports answer from memory, finished
// ones from the persisted row.
func (s *Service) ProgressForUser(ctx context.Context, username string) (int, string, error) {
	s.mu.RLock()
	imp, ok := s.byUser[username]
	s.mu.RUnlock()
	if ok {
		p := imp.snapshot()
		return p.Percent(), p.FileName, nil
	}

	row, err := s.store.ImportProgressFor(ctx, username)
	if err != nil {
		return 0, "", err
	}
	return row.Percent, row.FileName, nil
}

// ImportRuns returns the most recent import history rows.
func (s *Service) ImportRuns(ctx context.Context, limit int) ([]inventory.ImportRun, error) {
	return s.store.RecentImportRuns(ctx, limit)
}

// WaitForImports blocks until in-flight imports drain or ctx expires.
// Called during shutdown.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// cleanup drops the import from tracking after a delay, leaving a
// window for result and progress queries.
func (s *Service) cleanup(importID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.imports, importID)
		s.mu.Unlock()
	})
}

// update mutates the progress under the lock and fans the new snapshot
// out to listeners. Slow listeners miss updates rather than block the
// import.
func (imp *activeImport) update(mutate func(*ImportProgress)) {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	mutate(&imp.progress)
	for _, ch := range imp.listeners {
		select {
		case ch <- imp.progress:
		default:
		}
	}
}

func (imp *activeImport) snapshot() ImportProgress {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.progress
}

// subscribe registers a listener. Already-finished imports get a
// closed channel carrying the terminal snapshot.
func (imp *activeImport) subscribe() <-chan ImportProgress {
	ch := make(chan ImportProgress, 10)

	imp.mu.Lock()
	defer imp.mu.Unlock()

	select {
	case <-imp.Done:
		ch <- imp.progress
		close(ch)
	default:
		imp.listeners = append(imp.listeners, ch)
		ch <- imp.progress
	}
	return ch
}

func (imp *activeImport) closeListeners() {
	imp.mu.Lock()
	defer imp.mu.Unlock()

	for _, ch := range imp.listeners {
		close(ch)
	}
	imp.listeners = nil
}
