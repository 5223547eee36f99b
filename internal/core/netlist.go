package core

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// KiCad netlist export shape, reduced to what the importer reads:
//
//	<export>
//	  <components>
//	    <comp ref="R1">
//	      <footprint>Resistor_SMD:R_0402_1005Metric</footprint>
//	      <datasheet>https://example.com/r.pdf</datasheet>
//	      <libsource lib="Device" part="R"/>
//	      <fields>
//	        <field name="PartTrace">42</field>
//	      </fields>
//	    </comp>
//	  </components>
//	</export>
type netlistExport struct {
	XMLName xml.Name      `xml:"export"`
	Comps   []netlistComp `xml:"components>comp"`
}

type netlistComp struct {
	Ref       string `xml:"ref,attr"`
	Footprint string `xml:"footprint"`
	Datasheet string `xml:"datasheet"`
	LibSource struct {
		Lib  string `xml:"lib,attr"`
		Part string `xml:"part,attr"`
	} `xml:"libsource"`
	Fields []netlistField `xml:"fields>field"`
}

type netlistField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// ParseNetlist decodes a netlist export into component rows. idPrefix
// selects the field carrying the part id: the first field whose name
// starts with it, case-insensitively. Extraction is lenient; missing
// pieces leave the row field empty and the import loop decides what to
// skip, so skipped rows still count toward progress.
func ParseNetlist(r io.Reader, idPrefix string) ([]Component, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read netlist: %w", err)
	}

	var doc netlistExport
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed netlist: %w", err)
	}

	comps := make([]Component, 0, len(doc.Comps))
	for _, nc := range doc.Comps {
		c := Component{
			Reference: strings.TrimSpace(nc.Ref),
			Footprint: strings.TrimSpace(nc.Footprint),
			Datasheet: strings.TrimSpace(nc.Datasheet),
		}
		if nc.LibSource.Lib != "" && nc.LibSource.Part != "" {
			c.Symbol = nc.LibSource.Lib + ":" + nc.LibSource.Part
		}
		c.Identifier = findIdentifier(nc.Fields, idPrefix)
		comps = append(comps, c)
	}
	return comps, nil
}

// findIdentifier returns the value of the first field whose name
// starts with the configured id prefix.
func findIdentifier(fields []netlistField, idPrefix string) string {
	prefix := strings.ToLower(idPrefix)
	for _, f := range fields {
		if strings.HasPrefix(strings.ToLower(f.Name), prefix) {
			return strings.TrimSpace(f.Value)
		}
	}
	return ""
}
