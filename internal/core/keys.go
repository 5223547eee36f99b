package core

// Settings keys understood by the bridge. Every key carries a
// registered Definition (see internal/core/settings); values live in
// the kicad_settings table and fall back to the definition default.
const (
	// Export behavior.
	SettingEnableSubcategory = "KICAD_ENABLE_SUBCATEGORY"
	SettingEnableStockCount  = "KICAD_ENABLE_STOCK_COUNT"
	SettingStockCountFormat  = "KICAD_ENABLE_STOCK_COUNT_FORMAT"
	SettingMissingSymbol     = "DEFAULT_FOR_MISSING_SYMBOL"
	SettingIncludeIPN        = "KICAD_INCLUDE_IPN"
	SettingUseIPNAsName      = "KICAD_USE_IPN_AS_NAME"
	SettingHideInactiveParts = "KICAD_HIDE_INACTIVE_PARTS"
	SettingIncludeUnits      = "KICAD_INCLUDE_UNITS_IN_PARAMETERS"
	SettingManufacturerData  = "KICAD_ENABLE_MANUFACTURER_DATA"

	// Template bindings. Values are parameter template ids stored as
	// strings; empty means unbound.
	SettingSymbolParameter       = "KICAD_SYMBOL_PARAMETER"
	SettingFootprintParameter    = "KICAD_FOOTPRINT_PARAMETER"
	SettingReferenceParameter    = "KICAD_REFERENCE_PARAMETER"
	SettingValueParameter        = "KICAD_VALUE_PARAMETER"
	SettingVisibilityParameter   = "KICAD_FIELD_VISIBILITY_PARAMETER"
	SettingExcludeBOMParameter   = "KICAD_EXCLUDE_FROM_BOM_PARAMETER"
	SettingExcludeBoardParameter = "KICAD_EXCLUDE_FROM_BOARD_PARAMETER"
	SettingExcludeSimParameter   = "KICAD_EXCLUDE_FROM_SIM_PARAMETER"

	// SettingVisibilityGlobalName holds a template NAME, not an id. It
	// is the fallback lookup when SettingVisibilityParameter is unbound.
	SettingVisibilityGlobalName = "KICAD_FIELD_VISIBILITY_PARAMETER_GLOBAL"

	// Import behavior.
	SettingImportAddDatasheet   = "KICAD_META_DATA_IMPORT_ADD_DATASHEET"
	SettingImportIDFallback     = "IMPORT_PART_ID_FALLBACK"
	SettingImportOverrideParams = "IMPORT_PART_OVERRIDE_PARAMS"
	SettingImportIDIdentifier   = "IMPORT_PART_ID_IDENTIFIER"
)
