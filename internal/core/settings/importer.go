package settings

import "github.com/parttrace/kicadbridge/internal/core"

// Settings that steer netlist metadata imports.
func init() {
	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingImportAddDatasheet,
		Label:       "Attach datasheets on import",
		Description: "Attach a component's datasheet URL to the matched part",
		Default:     "False",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingImportIDFallback,
		Label:       "Fall back to part name",
		Description: "Match components by part name when the id lookup misses",
		Default:     "False",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingImportOverrideParams,
		Label:       "Override existing parameters",
		Description: "Overwrite parameter values that the part already has",
		Default:     "False",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingImportIDIdentifier,
		Label:       "Id field prefix",
		Description: "Component field whose name starts with this prefix carries the part id",
		Default:     "PartTrace",
		Kind:        core.KindString,
	})
}
