package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/survey"
)

// StructuredRecord is the nested single-mode export.
type StructuredRecord struct {
	Name      string           `json:"name"`
	Mode      string           `json:"mode"`
	Responses OrderedResponses `json:"responses"`
	Totals    survey.Totals    `json:"totals"`
}

// OrderedResponses is a ResponseSet that encodes its keys in a fixed order.
type OrderedResponses struct {
	IDs []string
	Set survey.ResponseSet
}

// MarshalJSON writes the allocations as an object keyed in IDs order.
func (o OrderedResponses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range o.IDs {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.Set.Get(id))
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an allocation object, keeping document key order.
func (o *OrderedResponses) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("responses: expected object, got %v", tok)
	}

	o.IDs = nil
	o.Set = make(survey.ResponseSet)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, _ := tok.(string)

		var a survey.Allocation
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("responses[%s]: %w", id, err)
		}
		if _, dup := o.Set[id]; !dup {
			o.IDs = append(o.IDs, id)
		}
		o.Set[id] = a
	}

	_, err = dec.Token()
	return err
}

// Structured builds the nested single-mode export with responses in catalog
// order.
func Structured(cat *catalog.Catalog, name string, mode survey.Mode, rs survey.ResponseSet, totals survey.Totals) StructuredRecord {
	return StructuredRecord{
		Name:      name,
		Mode:      mode.Label(),
		Responses: OrderedResponses{IDs: cat.PairIDs(), Set: rs.Clone()},
		Totals:    totals,
	}
}

// EncodeStructured renders v as two-space indented JSON. Field order follows
// construction order and HTML characters are left unescaped.
func EncodeStructured(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode structured export: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseStructured decodes a structured export. The mode label must name a
// known mode; pairs absent from the document read as zero.
func ParseStructured(cat *catalog.Catalog, r io.Reader) (string, survey.Mode, survey.ResponseSet, error) {
	var rec StructuredRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return "", 0, nil, fmt.Errorf("decode structured export: %w", err)
	}

	mode, err := survey.ParseMode(rec.Mode)
	if err != nil {
		return "", 0, nil, err
	}

	rs := survey.NewResponseSet(cat)
	for _, id := range rec.Responses.IDs {
		if cat.Has(id) {
			rs[id] = rec.Responses.Set[id]
		}
	}
	return rec.Name, mode, rs, nil
}
