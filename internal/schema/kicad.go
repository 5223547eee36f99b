package schema

import (
	"strconv"

	"github.com/parttrace/kicadbridge/internal/core"
	"github.com/parttrace/kicadbridge/internal/inventory"
)

// Wire shapes for the KiCad HTTP library API. KiCad expects every id as
// a string and tri-state booleans as "True"/"False" text, so the
// converters below do that translation in one place.

// IndexResponse is the API root. The values are absolute URLs to the
// category and part collections.
type IndexResponse struct {
	Categories string `json:"categories"`
	Parts      string `json:"parts"`
}

// CategorySummary is one entry of the category listing. Name carries
// the full path string so nested categories read naturally in the
// KiCad symbol chooser.
type CategorySummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PartSummary is one entry of a category's part listing.
type PartSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Field is a single KiCad field value. Visible is "True", "False" or
// omitted when KiCad should apply its own default.
type Field struct {
	Value   string `json:"value"`
	Visible string `json:"visible,omitempty"`
}

// PartDetail is the full KiCad view of one part.
type PartDetail struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	SymbolIDStr      string           `json:"symbolIdStr"`
	ExcludeFromBOM   string           `json:"exclude_from_bom"`
	ExcludeFromBoard string           `json:"exclude_from_board"`
	ExcludeFromSim   string           `json:"exclude_from_sim"`
	Fields           map[string]Field `json:"fields"`
}

// FieldVisibilityResponse tells KiCad which fields to show by default.
type FieldVisibilityResponse struct {
	ShowField map[string]string `json:"show_field"`
}

// CategoryList converts configured categories to their wire form. An
// empty input yields an empty array, never null.
func CategoryList(categories []inventory.Category) []CategorySummary {
	out := make([]CategorySummary, 0, len(categories))
	for _, c := range categories {
		name := c.PathString
		if name == "" {
			name = c.Name
		}
		out = append(out, CategorySummary{
			ID:          strconv.FormatInt(c.ID, 10),
			Name:        name,
			Description: c.Description,
		})
	}
	return out
}

// PartList converts part previews to their wire form.
func PartList(previews []core.PartPreview) []PartSummary {
	out := make([]PartSummary, 0, len(previews))
	for _, p := range previews {
		out = append(out, PartSummary{
			ID:          strconv.FormatInt(p.ID, 10),
			Name:        p.Name,
			Description: p.Description,
		})
	}
	return out
}

// PartDetailFrom flattens resolved part details into the KiCad shape.
// Later fields win on name collisions, matching resolver precedence.
func PartDetailFrom(d core.PartDetails) PartDetail {
	fields := make(map[string]Field, len(d.Fields))
	for _, f := range d.Fields {
		fields[f.Name] = Field{Value: f.Value, Visible: f.Visible}
	}
	return PartDetail{
		ID:               strconv.FormatInt(d.ID, 10),
		Name:             d.Name,
		SymbolIDStr:      d.Symbol,
		ExcludeFromBOM:   d.ExcludeFromBOM,
		ExcludeFromBoard: d.ExcludeFromBoard,
		ExcludeFromSim:   d.ExcludeFromSim,
		Fields:           fields,
	}
}
