package dialect

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// The XML shapes below mirror a standard MAVLink dialect document: a root
// element with <enums> and <messages> children. rawMessage implements
// xml.Unmarshaler itself because <field> and the bare <extensions/> marker
// are interleaved siblings whose *position* matters (it is how the
// core/extension boundary is found) — something encoding/xml's struct-tag
// matching can't express on its own.

type rawDialect struct {
	XMLName  xml.Name     `xml:"mavlink"`
	Enums    []rawEnum    `xml:"enums>enum"`
	Messages []rawMessage `xml:"messages>message"`
}

type rawEnum struct {
	Name    string     `xml:"name,attr"`
	Bitmask string     `xml:"bitmask,attr"`
	Entries []rawEntry `xml:"entry"`
}

type rawEntry struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type rawField struct {
	Name string
	Type string
	Enum string
}

type rawMessage struct {
	ID            int
	Name          string
	Fields        []rawField
	ExtensionsAt  int // index into Fields of the <extensions/> marker, -1 if none
}

func (m *rawMessage) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	m.ExtensionsAt = -1
	for _, a := range start.Attr {
		switch a.Name.Local {
		case "id":
			id, err := strconv.Atoi(a.Value)
			if err != nil {
				return fmt.Errorf("dialect: message id %q is not an integer: %w", a.Value, err)
			}
			m.ID = id
		case "name":
			m.Name = a.Value
		}
	}

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "field":
				var f rawField
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "name":
						f.Name = a.Value
					case "type":
						f.Type = a.Value
					case "enum":
						f.Enum = a.Value
					}
				}
				if err := d.Skip(); err != nil {
					return err
				}
				m.Fields = append(m.Fields, f)
			case "extensions":
				if m.ExtensionsAt == -1 {
					m.ExtensionsAt = len(m.Fields)
				}
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "message" {
				return nil
			}
		}
	}
}
