// Package admin provides administrative operations: seeding reference
// data and resetting the bridge-owned state.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parttrace/kicadbridge/internal/core"
	"github.com/parttrace/kicadbridge/internal/inventory"
)

// File is the YAML seed shape. Everything is optional and every section
// applies idempotently, so the file can be re-applied after edits.
//
//	templates:
//	  - name: Footprint
//	    units: ""
//	    description: Raw footprint text
//	categories:
//	  - path: Electronics/Passives/Resistors
//	    description: Fixed resistors
//	parts:
//	  - id: 101                # optional; omit to autogenerate
//	    category: Electronics/Passives/Resistors
//	    name: RES-0603-10K
//	    parameters:
//	      Resistance: 10k
//	    attachments:
//	      - comment: Datasheet
//	        link: https://example.com/res-0603-10k.pdf
//	    manufacturers:
//	      - name: Yageo
//	        mpn: RC0603FR-0710KL
//	configs:
//	  - category: Electronics/Passives/Resistors   # path or numeric id
//	    symbol: Device:R
//	    reference: R
//	    value_template: Resistance
//	    mappings:
//	      - value: "0603"
//	        footprint: Resistor_SMD:R_0603_1608Metric
//	settings:
//	  KICAD_ENABLE_SUBCATEGORY: "True"
//	  KICAD_SYMBOL_PARAMETER: Symbol   # template-ref settings accept a name
type File struct {
	Templates  []TemplateSeed    `yaml:"templates"`
	Categories []CategorySeed    `yaml:"categories"`
	Parts      []PartSeed        `yaml:"parts"`
	Configs    []ConfigSeed      `yaml:"configs"`
	Settings   map[string]string `yaml:"settings"`
}

type TemplateSeed struct {
	Name        string `yaml:"name"`
	Units       string `yaml:"units"`
	Description string `yaml:"description"`
}

type CategorySeed struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description"`
}

type PartSeed struct {
	ID            int64              `yaml:"id"`
	Category      string             `yaml:"category"`
	Name          string             `yaml:"name"`
	FullName      string             `yaml:"full_name"`
	IPN           string             `yaml:"ipn"`
	Description   string             `yaml:"description"`
	Keywords      string             `yaml:"keywords"`
	Link          string             `yaml:"link"`
	Inactive      bool               `yaml:"inactive"`
	InStock       float64            `yaml:"in_stock"`
	Parameters    map[string]string  `yaml:"parameters"`
	Attachments   []AttachmentSeed   `yaml:"attachments"`
	Manufacturers []ManufacturerSeed `yaml:"manufacturers"`
}

type AttachmentSeed struct {
	Comment  string `yaml:"comment"`
	FileName string `yaml:"file_name"`
	Link     string `yaml:"link"`
}

type ManufacturerSeed struct {
	Name string `yaml:"name"`
	MPN  string `yaml:"mpn"`
}

type ConfigSeed struct {
	Category          string        `yaml:"category"`
	Symbol            string        `yaml:"symbol"`
	Footprint         string        `yaml:"footprint"`
	Reference         string        `yaml:"reference"`
	ValueTemplate     string        `yaml:"value_template"`
	FootprintTemplate string        `yaml:"footprint_template"`
	Mappings          []MappingSeed `yaml:"mappings"`
}

type MappingSeed struct {
	Value     string `yaml:"value"`
	Footprint string `yaml:"footprint"`
}

// Seeder applies seed files against the store and settings service.
type Seeder struct {
	Store    *inventory.Store
	Settings *core.SettingsService
}

// ApplyFile reads, parses and applies one seed file.
func (s *Seeder) ApplyFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return s.Apply(ctx, &f)
}

// Apply runs the seed sections in dependency order: templates first,
// then the category tree, parts, per-category configs and finally the
// settings values.
func (s *Seeder) Apply(ctx context.Context, f *File) error {
	st := &seedState{
		seeder:     s,
		templates:  make(map[string]int64),
		categories: make(map[string]int64),
	}

	for _, t := range f.Templates {
		tpl, err := s.Store.EnsureTemplate(ctx, t.Name, t.Units, t.Description)
		if err != nil {
			return fmt.Errorf("seed template %q: %w", t.Name, err)
		}
		st.templates[strings.ToLower(t.Name)] = tpl.ID
	}

	for _, c := range f.Categories {
		if _, err := st.ensurePath(ctx, c.Path, c.Description); err != nil {
			return err
		}
	}

	explicitIDs := false
	for _, p := range f.Parts {
		if p.ID > 0 {
			explicitIDs = true
		}
		if err := st.applyPart(ctx, p); err != nil {
			return err
		}
	}
	if explicitIDs {
		// Explicit part ids bypass the identity columns; realign them so
		// autogenerated rows do not collide later.
		if err := s.Store.SyncIdentitySequences(ctx); err != nil {
			return err
		}
	}

	mappings := 0
	for _, c := range f.Configs {
		n, err := st.applyConfig(ctx, c)
		if err != nil {
			return err
		}
		mappings += n
	}

	keys := make([]string, 0, len(f.Settings))
	for key := range f.Settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value, err := st.resolveSettingValue(ctx, key, f.Settings[key])
		if err != nil {
			return err
		}
		if err := s.Settings.Set(ctx, key, value); err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}

	slog.Info("seed applied",
		"templates", len(f.Templates),
		"categories", len(f.Categories),
		"parts", len(f.Parts),
		"configs", len(f.Configs),
		"mappings", mappings,
		"settings", len(f.Settings),
	)
	return nil
}

// seedState carries the name-to-id resolutions built up during one
// apply pass.
type seedState struct {
	seeder     *Seeder
	templates  map[string]int64
	categories map[string]int64
}

// ensurePath walks a slash-separated category path, creating missing
// segments. The description lands on the final segment.
func (st *seedState) ensurePath(ctx context.Context, path, description string) (int64, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return 0, errors.New("seed category: empty path")
	}
	if id, ok := st.categories[path]; ok {
		return id, nil
	}

	var parentID *int64
	segments := strings.Split(path, "/")
	for i, name := range segments {
		desc := ""
		if i == len(segments)-1 {
			desc = description
		}
		cat, err := st.seeder.Store.EnsureCategory(ctx, strings.TrimSpace(name), desc, parentID)
		if err != nil {
			return 0, fmt.Errorf("seed category %q: %w", path, err)
		}
		id := cat.ID
		parentID = &id
		st.categories[strings.Join(segments[:i+1], "/")] = id
	}
	return *parentID, nil
}

func (st *seedState) applyPart(ctx context.Context, p PartSeed) error {
	part := inventory.Part{
		ID:          p.ID,
		Name:        p.Name,
		FullName:    p.FullName,
		IPN:         p.IPN,
		Description: p.Description,
		Keywords:    p.Keywords,
		Link:        p.Link,
		Active:      !p.Inactive,
		InStock:     p.InStock,
	}
	if part.FullName == "" {
		part.FullName = p.Name
	}
	if p.Category != "" {
		catID, err := st.resolveCategory(ctx, p.Category)
		if err != nil {
			return fmt.Errorf("seed part %q: %w", p.Name, err)
		}
		part.CategoryID = &catID
	}

	stored, err := st.seeder.Store.UpsertPart(ctx, part)
	if err != nil {
		return fmt.Errorf("seed part %q: %w", p.Name, err)
	}

	for _, name := range sortedKeys(p.Parameters) {
		tplID, err := st.resolveTemplate(ctx, name)
		if err != nil {
			return fmt.Errorf("seed part %q: %w", p.Name, err)
		}
		_, err = st.seeder.Store.UpsertParameter(ctx, st.seeder.Store.Pool(),
			stored.ID, tplID, p.Parameters[name], true)
		if err != nil {
			return fmt.Errorf("seed part %q: %w", p.Name, err)
		}
	}

	for _, a := range p.Attachments {
		if _, err := st.seeder.Store.AddAttachment(ctx, stored.ID, a.Comment, a.FileName, a.Link); err != nil {
			return fmt.Errorf("seed part %q: %w", p.Name, err)
		}
	}
	for _, m := range p.Manufacturers {
		if _, err := st.seeder.Store.AddManufacturerPart(ctx, stored.ID, m.Name, m.MPN); err != nil {
			return fmt.Errorf("seed part %q: %w", p.Name, err)
		}
	}
	return nil
}

// applyConfig creates or updates the category's config and returns the
// number of footprint mappings added.
func (st *seedState) applyConfig(ctx context.Context, c ConfigSeed) (int, error) {
	catID, err := st.resolveCategory(ctx, c.Category)
	if err != nil {
		return 0, fmt.Errorf("seed config for %q: %w", c.Category, err)
	}

	cfg := inventory.CategoryConfig{
		CategoryID:       catID,
		DefaultSymbol:    c.Symbol,
		DefaultFootprint: c.Footprint,
		DefaultReference: c.Reference,
	}
	if c.ValueTemplate != "" {
		id, err := st.resolveTemplate(ctx, c.ValueTemplate)
		if err != nil {
			return 0, fmt.Errorf("seed config for %q: %w", c.Category, err)
		}
		cfg.DefaultValueTemplateID = &id
	}
	if c.FootprintTemplate != "" {
		id, err := st.resolveTemplate(ctx, c.FootprintTemplate)
		if err != nil {
			return 0, fmt.Errorf("seed config for %q: %w", c.Category, err)
		}
		cfg.FootprintTemplateID = &id
	}

	store := st.seeder.Store
	existing, err := store.CategoryConfigForCategory(ctx, catID)
	switch {
	case err == nil:
		cfg.ID = existing.ID
		if existing, err = store.UpdateCategoryConfig(ctx, cfg); err != nil {
			return 0, fmt.Errorf("seed config for %q: %w", c.Category, err)
		}
	case errors.Is(err, inventory.ErrNotFound):
		if existing, err = store.CreateCategoryConfig(ctx, cfg); err != nil {
			return 0, fmt.Errorf("seed config for %q: %w", c.Category, err)
		}
	default:
		return 0, fmt.Errorf("seed config for %q: %w", c.Category, err)
	}

	added := 0
	for _, m := range c.Mappings {
		_, err := store.AddFootprintMapping(ctx, inventory.FootprintMapping{
			ConfigID:       existing.ID,
			ParameterValue: m.Value,
			Footprint:      m.Footprint,
		})
		if errors.Is(err, inventory.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("seed mapping %q: %w", m.Value, err)
		}
		added++
	}
	return added, nil
}

// resolveCategory accepts a numeric category id or a path. Paths are
// created on demand; numeric ids must already exist.
func (st *seedState) resolveCategory(ctx context.Context, ref string) (int64, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		if _, err := st.seeder.Store.CategoryByID(ctx, id); err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return 0, fmt.Errorf("invalid id: unknown category %d", id)
			}
			return 0, err
		}
		return id, nil
	}
	return st.ensurePath(ctx, ref, "")
}

func (st *seedState) resolveTemplate(ctx context.Context, name string) (int64, error) {
	if id, ok := st.templates[strings.ToLower(name)]; ok {
		return id, nil
	}
	tpl, err := st.seeder.Store.TemplateByName(ctx, name)
	if errors.Is(err, inventory.ErrNotFound) {
		return 0, fmt.Errorf("template %q not found", name)
	}
	if err != nil {
		return 0, err
	}
	st.templates[strings.ToLower(name)] = tpl.ID
	return tpl.ID, nil
}

// resolveSettingValue lets template-ref settings carry a template name
// instead of an id; other settings pass through untouched.
func (st *seedState) resolveSettingValue(ctx context.Context, key, value string) (string, error) {
	def, ok := core.SettingDef(key)
	if !ok || def.Kind != core.KindTemplateRef || value == "" {
		return value, nil
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return value, nil
	}
	id, err := st.resolveTemplate(ctx, value)
	if err != nil {
		return "", fmt.Errorf("seed setting %s: %w", key, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
