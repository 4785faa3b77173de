package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Verdict classifies the completeness of an extraction outcome.
type Verdict string

const (
	// VerdictComplete means both required fields were extracted.
	VerdictComplete Verdict = "complete"
	// VerdictIncomplete means at least one required field is missing and a
	// person must review the record.
	VerdictIncomplete Verdict = "incomplete"
	// VerdictError means the document itself could not be processed.
	VerdictError Verdict = "error"
)

// Outcome is the result of processing one file. Amount is nil when no
// usable amount was extracted; POCandidates holds every distinct PO number
// seen in the text, for manual review.
type Outcome struct {
	Filename     string
	FilePath     string
	SupplierCode string
	PONumber     string
	Amount       *float64
	CheckNo      string
	ReceiverID   string
	POCandidates []string
	Verdict      Verdict
	Notes        string
}

// requiredFields must both be non-empty for an outcome to be complete.
// The remaining fields use the same tiered strategy but never block
// completeness.
var orderedFields = []struct {
	field    Field
	required bool
}{
	{FieldPONumber, true},
	{FieldAmount, true},
	{FieldCheckNo, false},
	{FieldReceiverID, false},
}

// Orchestrator runs the two-tier extraction strategy per field and
// classifies the result.
type Orchestrator struct {
	opener   Opener
	registry *Registry
	location *LocationExtractor
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(opener Opener, registry *Registry, location *LocationExtractor) *Orchestrator {
	return &Orchestrator{
		opener:   opener,
		registry: registry,
		location: location,
	}
}

// Process extracts fields from one file. It never panics past this
// boundary: document-level failures come back as an error verdict with a
// descriptive note, and field-level failures degrade to empty fields.
func (o *Orchestrator) Process(ctx context.Context, filePath, filename string) *Outcome {
	out := &Outcome{
		Filename: filename,
		FilePath: filePath,
		Verdict:  VerdictIncomplete,
	}

	doc, err := o.opener.Open(filePath)
	if err != nil {
		out.Verdict = VerdictError
		appendNote(out, fmt.Sprintf("Cannot open document: %v", err))
		return out
	}
	defer doc.Close()

	text, err := doc.Text(ctx)
	if err != nil {
		out.Verdict = VerdictError
		appendNote(out, fmt.Sprintf("Text extraction failed: %v", err))
		return out
	}
	appendNote(out, "Text extracted")

	tag := MatchFilename(filename)
	if tag == nil {
		// No trusted supplier code: only generic text patterns run, as
		// hints for the manual classification that must follow.
		o.extractHints(out, text)
		appendNote(out, "no supplier match")
		slog.Debug("filename did not match convention", "filename", filename)
		return out
	}
	out.SupplierCode = tag.SupplierCode
	appendNote(out, fmt.Sprintf("Supplier matched: %s", tag.SupplierCode))

	for _, spec := range orderedFields {
		value := o.extractField(ctx, out, doc, text, tag.SupplierCode, spec.field)
		o.assign(out, spec.field, value)
		if value == "" && spec.required {
			appendNote(out, fmt.Sprintf("No %s found", spec.field))
		}
	}

	out.POCandidates = o.collectPOCandidates(out, text)

	if out.PONumber != "" && out.Amount != nil {
		out.Verdict = VerdictComplete
		appendNote(out, "Complete extraction")
	} else {
		out.Verdict = VerdictIncomplete
		appendNote(out, "Incomplete extraction")
	}
	return out
}

// extractField tries each registered pattern in order and returns the first
// cleaned value. Location-tier failures are noted and fall through to the
// text tier.
func (o *Orchestrator) extractField(ctx context.Context, out *Outcome, doc Document, text, supplierCode string, field Field) string {
	patterns := o.registry.Lookup(supplierCode, field)
	if len(patterns) == 0 {
		appendNote(out, fmt.Sprintf("No pattern configured for %s", field))
		return ""
	}
	collapsed := CollapseDigitRuns(text)
	for _, p := range patterns {
		switch p.Kind {
		case KindLocation:
			raw, err := o.location.Extract(ctx, doc, p.Box)
			if err != nil {
				appendNote(out, fmt.Sprintf("Location tier failed for %s: %v", field, err))
				continue
			}
			if value, ok := cleanFieldValue(field, raw); ok {
				appendNote(out, fmt.Sprintf("%s extracted from location: %s", field, value))
				return value
			}
			appendNote(out, fmt.Sprintf("Location tier found no %s value", field))
		case KindText:
			m := p.Regex.FindStringSubmatch(collapsed)
			if m == nil {
				m = p.Regex.FindStringSubmatch(text)
			}
			if m == nil {
				continue
			}
			raw := m[0]
			if len(m) > 1 {
				raw = m[1]
			}
			if value, ok := cleanFieldValue(field, raw); ok {
				appendNote(out, fmt.Sprintf("%s extracted: %s", field, value))
				return value
			}
		}
	}
	return ""
}

// extractHints fills PO and amount hint values from generic patterns when no
// supplier was matched. The outcome stays incomplete regardless.
func (o *Orchestrator) extractHints(out *Outcome, text string) {
	out.POCandidates = POCandidates(text, o.registry.GenericPatterns(FieldPONumber))
	if len(out.POCandidates) > 0 {
		out.PONumber = out.POCandidates[0]
	}
	collapsed := CollapseDigitRuns(text)
	for _, re := range o.registry.GenericPatterns(FieldAmount) {
		m := re.FindStringSubmatch(collapsed)
		if m == nil {
			m = re.FindStringSubmatch(text)
		}
		if m == nil {
			continue
		}
		if amount, ok := ParseAmount(m[1]); ok {
			out.Amount = &amount
			break
		}
	}
}

func (o *Orchestrator) collectPOCandidates(out *Outcome, text string) []string {
	candidates := POCandidates(text, o.registry.GenericPatterns(FieldPONumber))
	if out.PONumber == "" {
		return candidates
	}
	for _, c := range candidates {
		if c == out.PONumber {
			return candidates
		}
	}
	return append([]string{out.PONumber}, candidates...)
}

func (o *Orchestrator) assign(out *Outcome, field Field, value string) {
	if value == "" {
		return
	}
	switch field {
	case FieldPONumber:
		out.PONumber = value
	case FieldAmount:
		if amount, err := strconv.ParseFloat(value, 64); err == nil {
			out.Amount = &amount
		}
	case FieldCheckNo:
		out.CheckNo = value
	case FieldReceiverID:
		out.ReceiverID = value
	}
}

func appendNote(out *Outcome, note string) {
	if out.Notes != "" {
		out.Notes += " "
	}
	out.Notes += note + "."
}
