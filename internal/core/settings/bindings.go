package settings

import "github.com/parttrace/kicadbridge/internal/core"

// Template bindings tie well-known KiCad fields to parameter
// templates. Values are template ids stored as strings; empty leaves
// the binding unset.
func init() {
	bind := func(key, label, description string) {
		core.RegisterSetting(core.SettingDefinition{
			Key:         key,
			Label:       label,
			Description: description,
			Default:     "",
			Kind:        core.KindTemplateRef,
		})
	}

	bind(core.SettingSymbolParameter, "Symbol parameter",
		"Template holding the schematic symbol of a part")
	bind(core.SettingFootprintParameter, "Footprint parameter",
		"Template holding the footprint of a part")
	bind(core.SettingReferenceParameter, "Reference parameter",
		"Template holding the reference designator prefix of a part")
	bind(core.SettingValueParameter, "Value parameter",
		"Template holding the value shown in the schematic")
	bind(core.SettingVisibilityParameter, "Visible fields parameter",
		"Template listing, comma separated, the fields KiCad should display")
	bind(core.SettingExcludeBOMParameter, "Exclude from BOM parameter",
		"Template flagging parts to leave out of the bill of materials")
	bind(core.SettingExcludeBoardParameter, "Exclude from board parameter",
		"Template flagging parts to leave off the board")
	bind(core.SettingExcludeSimParameter, "Exclude from simulation parameter",
		"Template flagging parts to leave out of simulation")

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingVisibilityGlobalName,
		Label:       "Visible fields template name",
		Description: "Template name to look up when no visible-fields binding is set",
		Default:     "Kicad_Visible_Fields",
		Kind:        core.KindString,
	})
}
