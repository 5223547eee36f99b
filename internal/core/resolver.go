package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/parttrace/kicadbridge/internal/inventory"
)

// ResolveInput carries everything the resolver needs for one part. All
// rows are loaded up front so resolution itself does no I/O.
type ResolveInput struct {
	Part          inventory.Part
	Config        *inventory.CategoryConfig // closest configured ancestor, nil when none
	Mappings      []inventory.FootprintMapping
	Parameters    []inventory.PartParameter
	Attachments   []inventory.Attachment
	Manufacturers []inventory.ManufacturerPart
	Settings      Snapshot
	BaseURL       string
}

// ResolvedField is a single KiCad field. Visible is "True", "False" or
// empty when the consumer should fall back to its own default.
type ResolvedField struct {
	Name    string
	Value   string
	Visible string
}

// PartDetails is the fully resolved KiCad view of one part.
type PartDetails struct {
	ID               int64
	Name             string
	Description      string
	Symbol           string
	ExcludeFromBOM   string
	ExcludeFromBoard string
	ExcludeFromSim   string
	Fields           []ResolvedField
}

// Resolve applies the layered lookup for every KiCad field. Precedence
// for each field is part parameter, then category default, then global
// setting, then hardcoded fallback.
func Resolve(in ResolveInput) PartDetails {
	defaults := []ResolvedField{
		{Name: "value", Value: in.value()},
		{Name: "footprint", Value: in.footprint(), Visible: "False"},
		{Name: "datasheet", Value: in.datasheet(), Visible: "False"},
		{Name: "reference", Value: in.reference(), Visible: "True"},
		{Name: "description", Value: in.Part.Description, Visible: "False"},
		{Name: "keywords", Value: in.Part.Keywords, Visible: "False"},
	}

	used := make(map[string]bool, len(defaults))
	for _, f := range defaults {
		used[f.Name] = true
	}

	return PartDetails{
		ID:               in.Part.ID,
		Name:             DisplayName(in.Part, in.Settings),
		Description:      DisplayDescription(in.Part, in.Settings),
		Symbol:           in.symbol(),
		ExcludeFromBOM:   in.exclusion(SettingExcludeBOMParameter),
		ExcludeFromBoard: in.exclusion(SettingExcludeBoardParameter),
		ExcludeFromSim:   in.exclusion(SettingExcludeSimParameter),
		Fields:           append(defaults, in.customFields(used)...),
	}
}

// templateValue returns the part's parameter value for the given
// template, or backup when the part carries no such parameter.
func (in ResolveInput) templateValue(templateID int64, backup string) string {
	for _, p := range in.Parameters {
		if p.TemplateID == templateID {
			return p.Data
		}
	}
	return backup
}

// settingParam resolves the template bound to the given setting key and
// returns the part's value for it. An unbound setting yields backup.
func (in ResolveInput) settingParam(key, backup string) string {
	id, ok := in.Settings.TemplateID(key)
	if !ok {
		return backup
	}
	return in.templateValue(id, backup)
}

func (in ResolveInput) reference() string {
	ref := "X"
	if in.Config != nil {
		ref = in.Config.DefaultReference
	}
	return in.settingParam(SettingReferenceParameter, ref)
}

func (in ResolveInput) symbol() string {
	sym := ""
	if in.Config != nil {
		sym = in.Config.DefaultSymbol
	}
	sym = in.settingParam(SettingSymbolParameter, sym)
	if sym == "" {
		sym = in.Settings.String(SettingMissingSymbol)
	}
	return NormalizeSymbol(sym)
}

// NormalizeSymbol keeps the first colon as the library separator and
// rewrites any further colons to underscores. KiCad treats the first
// colon as the library/name split and rejects additional ones.
func NormalizeSymbol(symbol string) string {
	cnt := strings.Count(symbol, ":")
	if cnt == 1 || len(symbol) == 0 {
		return symbol
	}

	var b strings.Builder
	for i, s := range strings.Split(symbol, ":") {
		b.WriteString(s)
		if i < 1 {
			b.WriteByte(':')
		} else if i < cnt {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (in ResolveInput) footprint() string {
	fp := ""
	var templateID int64
	var bound bool

	if in.Config != nil {
		fp = in.Config.DefaultFootprint
		if in.Config.FootprintTemplateID != nil {
			templateID, bound = *in.Config.FootprintTemplateID, true
		}
	}
	if !bound {
		templateID, bound = in.Settings.TemplateID(SettingFootprintParameter)
	}
	if bound {
		fp = in.templateValue(templateID, fp)
	}

	// A mapping for the resolved raw value wins over the value itself.
	for _, m := range in.Mappings {
		if m.ParameterValue == fp {
			return m.Footprint
		}
	}
	return fp
}

func (in ResolveInput) value() string {
	val := in.settingParam(SettingValueParameter, in.Part.FullName)
	if val == in.Part.FullName && in.Config != nil && in.Config.DefaultValueTemplateID != nil {
		val = in.templateValue(*in.Config.DefaultValueTemplateID, val)
	}
	return val
}

// datasheet returns the URL of the first attachment whose comment is
// "datasheet", preferring an external link over an uploaded file.
func (in ResolveInput) datasheet() string {
	for _, a := range in.Attachments {
		if !strings.EqualFold(a.Comment, "datasheet") {
			continue
		}
		if a.Link != "" {
			return a.Link
		}
		if a.FileName != "" {
			return strings.TrimRight(in.BaseURL, "/") + "/media/" + a.FileName
		}
	}
	return ""
}

func (in ResolveInput) exclusion(key string) string {
	return in.settingParam(key, "False")
}

// excludedTemplates collects the template ids already consumed by the
// dedicated KiCad fields so they are not repeated as custom fields.
func (in ResolveInput) excludedTemplates() map[int64]bool {
	keys := []string{
		SettingSymbolParameter,
		SettingFootprintParameter,
		SettingReferenceParameter,
		SettingExcludeBOMParameter,
		SettingExcludeBoardParameter,
		SettingExcludeSimParameter,
		SettingValueParameter,
	}

	excluded := make(map[int64]bool, len(keys)+1)
	for _, key := range keys {
		if id, ok := in.Settings.TemplateID(key); ok {
			excluded[id] = true
		}
	}
	if in.Config != nil && in.Config.DefaultValueTemplateID != nil {
		excluded[*in.Config.DefaultValueTemplateID] = true
	}
	return excluded
}

// visibleFieldNames returns the comma-separated show list from the
// visibility parameter. The per-part template binding wins; otherwise
// the template named by the global setting is looked up by name.
func (in ResolveInput) visibleFieldNames() []string {
	raw := ""
	if id, ok := in.Settings.TemplateID(SettingVisibilityParameter); ok {
		raw = in.templateValue(id, "")
	}
	if raw == "" {
		if name := in.Settings.String(SettingVisibilityGlobalName); name != "" {
			for _, p := range in.Parameters {
				if strings.EqualFold(p.TemplateName, name) {
					raw = p.Data
					break
				}
			}
		}
	}
	if raw == "" {
		return nil
	}

	var names []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			names = append(names, s)
		}
	}
	return names
}

// customFields assembles the non-default fields: the part identifier
// and URL, optionally IPN and manufacturer data, and every parameter
// not already consumed by a dedicated field. used holds the lowercased
// default field names that parameters must not collide with.
func (in ResolveInput) customFields(used map[string]bool) []ResolvedField {
	fields := []ResolvedField{
		{Name: "PartTrace", Value: strconv.FormatInt(in.Part.ID, 10), Visible: "False"},
		{Name: "Part URL", Value: in.partURL(), Visible: "False"},
	}

	if ipn := in.Settings.String(SettingIncludeIPN); ipn != "0" {
		fields = append(fields, ResolvedField{Name: "IPN", Value: in.Part.IPN, Visible: ipn})
	}

	if in.Settings.Bool(SettingManufacturerData) && len(in.Manufacturers) > 0 {
		m := in.Manufacturers[0]
		fields = append(fields,
			ResolvedField{Name: "Manufacturer", Value: m.Manufacturer, Visible: "False"},
			ResolvedField{Name: "MPN", Value: m.MPN, Visible: "False"},
		)
	}

	excluded := in.excludedTemplates()
	withUnits := in.Settings.Bool(SettingIncludeUnits)
	for _, p := range in.Parameters {
		if excluded[p.TemplateID] || used[strings.ToLower(p.TemplateName)] {
			continue
		}
		value := p.Data
		if withUnits && value != "" && p.TemplateUnits != "" {
			value += " " + p.TemplateUnits
		}
		fields = append(fields, ResolvedField{Name: p.TemplateName, Value: value, Visible: "False"})
	}

	if show := in.visibleFieldNames(); len(show) > 0 {
		for i := range fields {
			for _, name := range show {
				if strings.EqualFold(fields[i].Name, name) {
					fields[i].Visible = "True"
					break
				}
			}
		}
	}
	return fields
}

func (in ResolveInput) partURL() string {
	return fmt.Sprintf("%s/part/%d/", strings.TrimRight(in.BaseURL, "/"), in.Part.ID)
}

// DisplayName returns the name KiCad should list for a part, honoring
// the IPN substitution setting.
func DisplayName(p inventory.Part, settings Snapshot) string {
	if settings.Bool(SettingUseIPNAsName) && p.IPN != "" {
		return p.IPN
	}
	return p.Name
}

// DisplayDescription returns the preview description, prefixed with
// stock information when enabled. The format string uses {0} for the
// description and {1} for the stock count.
func DisplayDescription(p inventory.Part, settings Snapshot) string {
	if !settings.Bool(SettingEnableStockCount) {
		return p.Description
	}
	format := settings.String(SettingStockCountFormat)
	stock := strconv.FormatFloat(p.InStock, 'f', -1, 64)
	out := strings.ReplaceAll(format, "{0}", p.Description)
	return strings.ReplaceAll(out, "{1}", stock)
}

// FieldVisibility builds the settings-discovery map served to KiCad:
// each field name mapped to "1" (shown) or "0" (hidden). Parameter
// templates not covered by a dedicated field default to shown.
func FieldVisibility(templates []inventory.ParameterTemplate) map[string]string {
	show := map[string]string{
		"value":       "1",
		"footprint":   "0",
		"datasheet":   "0",
		"symbol":      "0",
		"reference":   "1",
		"description": "0",
		"keywords":    "0",
		"PartTrace":   "0",
	}
	for _, t := range templates {
		name := strings.ToLower(t.Name)
		if _, ok := show[name]; !ok {
			show[name] = "1"
		}
	}
	return show
}
