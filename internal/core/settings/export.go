package settings

import "github.com/parttrace/kicadbridge/internal/core"

// Settings that shape the part catalog as KiCad sees it.
func init() {
	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingEnableSubcategory,
		Label:       "Cascade subcategories",
		Description: "List parts from child categories under their configured parent",
		Default:     "True",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingEnableStockCount,
		Label:       "Stock count in description",
		Description: "Prefix part descriptions with the current stock level",
		Default:     "False",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingStockCountFormat,
		Label:       "Stock count format",
		Description: "Description format when stock count is enabled; {0} is the description, {1} the stock level",
		Default:     "[Stock: {1}] {0}",
		Kind:        core.KindString,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingMissingSymbol,
		Label:       "Fallback symbol",
		Description: "Symbol used when neither the part nor its category define one",
		Default:     "",
		Kind:        core.KindString,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingIncludeIPN,
		Label:       "Include IPN field",
		Description: "Expose the part IPN as a field: 0 excludes it, False adds it hidden, True adds it visible",
		Default:     "0",
		Kind:        core.KindChoice,
		Choices:     []string{"0", "False", "True"},
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingUseIPNAsName,
		Label:       "Use IPN as part name",
		Description: "Show the IPN instead of the part name when the part has one",
		Default:     "False",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingHideInactiveParts,
		Label:       "Hide inactive parts",
		Description: "Omit inactive parts from category listings",
		Default:     "True",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingIncludeUnits,
		Label:       "Append units to parameters",
		Description: "Append the template units to exported parameter values",
		Default:     "True",
		Kind:        core.KindBool,
	})

	core.RegisterSetting(core.SettingDefinition{
		Key:         core.SettingManufacturerData,
		Label:       "Manufacturer fields",
		Description: "Add Manufacturer and MPN fields from the part's manufacturer data",
		Default:     "False",
		Kind:        core.KindBool,
	})
}
