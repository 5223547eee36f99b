package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// SettingKind describes how a setting value is interpreted.
type SettingKind int

const (
	KindString SettingKind = iota
	KindBool
	KindChoice
	// KindTemplateRef values hold a parameter template id as a string;
	// empty means unbound.
	KindTemplateRef
)

func (k SettingKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindChoice:
		return "choice"
	case KindTemplateRef:
		return "template"
	default:
		return "string"
	}
}

// SettingDefinition declares one settings key: its default, how to
// parse it and, for choices, the allowed values.
type SettingDefinition struct {
	Key         string
	Label       string
	Description string
	Default     string
	Kind        SettingKind
	Choices     []string
}

// Validate checks a candidate value against the definition.
func (d SettingDefinition) Validate(value string) error {
	switch d.Kind {
	case KindChoice:
		for _, c := range d.Choices {
			if value == c {
				return nil
			}
		}
		return fmt.Errorf("invalid setting value %q for %s (allowed: %s)",
			value, d.Key, strings.Join(d.Choices, ", "))
	case KindTemplateRef:
		if value == "" {
			return nil
		}
		for _, r := range value {
			if r < '0' || r > '9' {
				return fmt.Errorf("invalid setting value %q for %s (template id expected)", value, d.Key)
			}
		}
		return nil
	default:
		return nil
	}
}

var (
	settingsRegistry = make(map[string]SettingDefinition)
	settingsMu       sync.RWMutex
)

// RegisterSetting adds a setting definition to the registry.
// Panics if the key is already registered.
func RegisterSetting(def SettingDefinition) {
	settingsMu.Lock()
	defer settingsMu.Unlock()

	if _, exists := settingsRegistry[def.Key]; exists {
		panic(fmt.Sprintf("setting already registered: %s", def.Key))
	}
	settingsRegistry[def.Key] = def
}

// SettingDef returns a setting definition by key.
// Returns false if not found.
func SettingDef(key string) (SettingDefinition, bool) {
	settingsMu.RLock()
	defer settingsMu.RUnlock()

	def, ok := settingsRegistry[key]
	return def, ok
}

// AllSettings returns all registered definitions sorted by key.
func AllSettings() []SettingDefinition {
	settingsMu.RLock()
	defer settingsMu.RUnlock()

	result := make([]SettingDefinition, 0, len(settingsRegistry))
	for _, def := range settingsRegistry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// SettingCount returns the number of registered settings.
func SettingCount() int {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return len(settingsRegistry)
}

// ClearSettings removes all registered definitions.
// Primarily useful for testing.
func ClearSettings() {
	settingsMu.Lock()
	defer settingsMu.Unlock()
	settingsRegistry = make(map[string]SettingDefinition)
}
