package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/parttrace/kicadbridge/internal/inventory"
)

// trueValues are the accepted spellings of a true boolean setting.
var trueValues = []string{"1", "y", "yes", "t", "true", "ok", "on"}

// ParseBool interprets a settings value as a boolean. Anything outside
// the known true spellings is false.
func ParseBool(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, t := range trueValues {
		if v == t {
			return true
		}
	}
	return false
}

// SettingsService reads and writes setting values. Stored values come
// from the kicad_settings table; keys never written fall back to their
// registered defaults. Reads are served from an in-memory cache that
// writes keep current, so the hot export path does not hit the
// database per setting.
type SettingsService struct {
	store *inventory.Store

	mu     sync.RWMutex
	values map[string]string
}

// NewSettingsService creates the service. Call Load before serving.
func NewSettingsService(store *inventory.Store) *SettingsService {
	return &SettingsService{
		store:  store,
		values: make(map[string]string),
	}
}

// Load primes the cache from the database. Unknown stored keys are
// ignored so removing a definition does not break startup.
func (s *SettingsService) Load(ctx context.Context) error {
	stored, err := s.store.AllSettingValues(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string, len(stored))
	for key, value := range stored {
		if _, ok := SettingDef(key); ok {
			s.values[key] = value
		}
	}
	return nil
}

// Value returns the effective value for a key: the stored value if one
// exists, the registered default otherwise. Unregistered keys error.
func (s *SettingsService) Value(key string) (string, error) {
	def, ok := SettingDef(key)
	if !ok {
		return "", fmt.Errorf("unknown setting: %s", key)
	}

	s.mu.RLock()
	value, stored := s.values[key]
	s.mu.RUnlock()
	if stored {
		return value, nil
	}
	return def.Default, nil
}

// Bool returns a boolean setting.
func (s *SettingsService) Bool(key string) (bool, error) {
	value, err := s.Value(key)
	if err != nil {
		return false, err
	}
	return ParseBool(value), nil
}

// TemplateID returns a template binding. The second return is false
// when the binding is unset.
func (s *SettingsService) TemplateID(key string) (int64, bool, error) {
	value, err := s.Value(key)
	if err != nil {
		return 0, false, err
	}
	if value == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid setting value %q for %s: %w", value, key, err)
	}
	return id, true, nil
}

// Set validates and persists one setting, then updates the cache.
// Template bindings must name a template that exists.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	def, ok := SettingDef(key)
	if !ok {
		return fmt.Errorf("unknown setting: %s", key)
	}
	if err := def.Validate(value); err != nil {
		return err
	}
	if def.Kind == KindTemplateRef && value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid setting value %q for %s: %w", value, key, err)
		}
		if _, err := s.store.TemplateByID(ctx, id); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return fmt.Errorf("invalid setting value %q for %s: unknown template %d", value, key, id)
			}
			return err
		}
	}

	if err := s.store.SetSettingValue(ctx, key, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Snapshot captures the effective value of every registered setting.
// The resolver works from a snapshot so one request sees one
// consistent view.
func (s *SettingsService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, SettingCount())
	for _, def := range AllSettings() {
		if value, ok := s.values[def.Key]; ok {
			snap[def.Key] = value
		} else {
			snap[def.Key] = def.Default
		}
	}
	return snap
}

// Snapshot is an immutable view of all setting values.
type Snapshot map[string]string

// String returns the value for a key; missing keys yield "".
func (s Snapshot) String(key string) string {
	return s[key]
}

// Bool interprets the value for a key as a boolean.
func (s Snapshot) Bool(key string) bool {
	return ParseBool(s[key])
}

// TemplateID returns the template binding for a key, with false when
// unset or malformed.
func (s Snapshot) TemplateID(key string) (int64, bool) {
	value := s[key]
	if value == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
