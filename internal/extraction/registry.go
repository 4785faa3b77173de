package extraction

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Field identifies an extractable invoice field.
type Field string

const (
	FieldPONumber   Field = "po_number"
	FieldAmount     Field = "amount"
	FieldCheckNo    Field = "check_no"
	FieldReceiverID Field = "receiver_id"
)

// PatternKind distinguishes the two extraction tiers.
type PatternKind int

const (
	KindLocation PatternKind = iota
	KindText
)

// Box is a bounding box in PDF points (1/72 inch) on a zero-indexed page.
type Box struct {
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
	Page int     `json:"page"`
}

// FieldPattern is one extraction strategy for a field: either a location box
// to render and recognize, or a regex over the full document text.
type FieldPattern struct {
	Field Field
	Kind  PatternKind
	Box   Box
	Regex *regexp.Regexp
}

// Registry holds per-supplier and generic field patterns. At most one
// location box and one text regex are active per (supplier, field) pair;
// registering again replaces the previous entry.
type Registry struct {
	locations    map[string]map[Field]Box
	supplierText map[string]map[Field]*regexp.Regexp
	generic      map[Field][]*regexp.Regexp
}

// NewRegistry returns a registry seeded with the generic text pattern sets.
func NewRegistry() *Registry {
	return &Registry{
		locations:    make(map[string]map[Field]Box),
		supplierText: make(map[string]map[Field]*regexp.Regexp),
		generic: map[Field][]*regexp.Regexp{
			FieldPONumber:   genericPOPatterns,
			FieldAmount:     genericAmountPatterns,
			FieldCheckNo:    genericCheckPatterns,
			FieldReceiverID: genericReceiverPatterns,
		},
	}
}

// SetLocation registers the location box for a supplier's field.
func (r *Registry) SetLocation(supplierCode string, field Field, box Box) {
	if r.locations[supplierCode] == nil {
		r.locations[supplierCode] = make(map[Field]Box)
	}
	r.locations[supplierCode][field] = box
}

// SetTextPattern registers a supplier-specific text regex for a field.
func (r *Registry) SetTextPattern(supplierCode string, field Field, re *regexp.Regexp) {
	if r.supplierText[supplierCode] == nil {
		r.supplierText[supplierCode] = make(map[Field]*regexp.Regexp)
	}
	r.supplierText[supplierCode][field] = re
}

// SetLabelPattern registers a supplier-specific text pattern built from a
// literal label followed by the field's value token, e.g. "PO/Rel" or "PO#".
func (r *Registry) SetLabelPattern(supplierCode string, field Field, label string) {
	r.SetTextPattern(supplierCode, field, BuildLabelPattern(field, label))
}

// Lookup returns the ordered pattern list for a supplier's field: the
// supplier's location box first, then its text pattern, then the generic
// text set as the final fallback when nothing supplier-specific matched.
// An empty result means no strategy is available for the field at all.
func (r *Registry) Lookup(supplierCode string, field Field) []FieldPattern {
	var patterns []FieldPattern
	if box, ok := r.locations[supplierCode][field]; ok {
		patterns = append(patterns, FieldPattern{Field: field, Kind: KindLocation, Box: box})
	}
	if re, ok := r.supplierText[supplierCode][field]; ok {
		patterns = append(patterns, FieldPattern{Field: field, Kind: KindText, Regex: re})
	}
	for _, re := range r.generic[field] {
		patterns = append(patterns, FieldPattern{Field: field, Kind: KindText, Regex: re})
	}
	return patterns
}

// GenericPatterns returns the shared text pattern set for a field.
func (r *Registry) GenericPatterns(field Field) []*regexp.Regexp {
	return r.generic[field]
}

// fieldMapping is one per-supplier field entry in the mapping file: a
// location box, a literal text label, or both.
type fieldMapping struct {
	Box
	Label string `json:"label"`
}

// LoadMappings reads the per-supplier pattern configuration file: a JSON
// object keyed by supplier code, each value mapping field names to a
// bounding box, a text label, or both. A missing file is not an error;
// suppliers simply have no patterns of their own.
func (r *Registry) LoadMappings(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading pattern mappings: %w", err)
	}
	var mappings map[string]map[Field]fieldMapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return fmt.Errorf("parsing pattern mappings: %w", err)
	}
	for supplier, fields := range mappings {
		for field, m := range fields {
			switch field {
			case FieldPONumber, FieldAmount, FieldCheckNo, FieldReceiverID:
				if m.Label != "" {
					r.SetLabelPattern(supplier, field, m.Label)
				}
				if m.X1 > m.X0 && m.Y1 > m.Y0 {
					r.SetLocation(supplier, field, m.Box)
				}
			}
		}
	}
	return nil
}
