package extraction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// poToken matches a PO number: a 5-digit core or a 7-digit core with two
// leading zeros, each optionally followed by a -NN line suffix. The 7-digit
// alternative comes first so it is not truncated to a partial 5-digit match.
const poToken = `(0{2}[0-9]{5}(?:-\d{2})?|[0-9]{5}(?:-\d{2})?)`

// genericPOPatterns are tried in order against the full document text when no
// supplier-specific pattern is registered.
var genericPOPatterns = []*regexp.Regexp{
	// PO/PO./P.O./PURCHASE ORDER/Order followed by a number.
	regexp.MustCompile(`(?im)(?:P\.?\s*O\.?|PO|PURCHASE\s+ORDER|Order)\s*[#:\s]+` + poToken),
	// PO NUMBER / PO # variants.
	regexp.MustCompile(`(?im)(?:PO|Purchase\s+Order)\s+(?:Number|#)?\s*` + poToken),
	// A PO number alone on its own line.
	regexp.MustCompile(`(?im)^` + poToken + `$`),
	// A PO number following a phone-number ending, e.g. "-5590 0040644-00".
	regexp.MustCompile(`(?im)-\d{4}\s+` + poToken),
}

var genericAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Total|Invoice\s*Total|Amount\s*Due|Amount|Balance\s*Due)\s*[:\-]*\s*\$?\s*([0-9,]+\.[0-9]{2})`),
	regexp.MustCompile(`(?i)Subtotal\s*[:\-]*\s*\$?\s*([0-9,]+\.[0-9]{2})`),
	regexp.MustCompile(`(?i)\$\s*([0-9,]+\.[0-9]{2})`),
}

var genericCheckPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:Check|Chk)\s*(?:No|Number|#)?\s*[:#]?\s*([0-9]{3,10})`),
}

var genericReceiverPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Receiver\s*(?:ID|No|#)?\s*[:#]?\s*([0-9]{3,10})`),
}

var (
	poTokenSearch = regexp.MustCompile(`0{2}[0-9]{5}(?:-\d{2})?|[0-9]{5}(?:-\d{2})?`)
	poTokenExact  = regexp.MustCompile(`^(0{2}[0-9]{5}|[0-9]{5})(-\d{2})?$`)
	amountSearch  = regexp.MustCompile(`[0-9]+(?:\.[0-9]{1,2})?`)
	idSearch      = regexp.MustCompile(`[A-Za-z0-9\-]+`)
	digitGap      = regexp.MustCompile(`([0-9])\s+([0-9])`)
)

// labelTokens are the per-field value tokens a supplier label pattern
// captures after its literal label.
var labelTokens = map[Field]string{
	FieldPONumber:   poToken,
	FieldAmount:     `\$?\s*([0-9,]+\.[0-9]{2})`,
	FieldCheckNo:    `([0-9]{3,10})`,
	FieldReceiverID: `([0-9]{3,10})`,
}

// BuildLabelPattern compiles a text pattern that matches a literal label
// followed by the field's value token, e.g. a po_number label "PO/Rel"
// matches "PO/Rel 0040303-00". The label is escaped so punctuation in it
// stays literal and the escapes of the shared tokens are preserved intact.
func BuildLabelPattern(field Field, label string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)` + regexp.QuoteMeta(label) + `\s*[#:]?\s*` + labelTokens[field])
}

// CollapseDigitRuns removes whitespace between adjacent digits, recovering
// numbers the OCR split (e.g. "00407 48" becomes "0040748").
func CollapseDigitRuns(text string) string {
	for {
		collapsed := digitGap.ReplaceAllString(text, "$1$2")
		if collapsed == text {
			return text
		}
		text = collapsed
	}
}

// NormalizePONumber extracts the first PO-style token from raw text and
// normalizes it by stripping leading zeros from the main part while keeping
// any -NN suffix: "0040085-05" becomes "40085-05".
func NormalizePONumber(raw string) (string, bool) {
	token := poTokenSearch.FindString(CollapseDigitRuns(raw))
	if token == "" {
		return "", false
	}
	return normalizePOToken(token)
}

func normalizePOToken(token string) (string, bool) {
	if !poTokenExact.MatchString(token) {
		return "", false
	}
	main, suffix, hasSuffix := strings.Cut(token, "-")
	n, err := strconv.Atoi(main)
	if err != nil {
		return "", false
	}
	if hasSuffix {
		return strconv.Itoa(n) + "-" + suffix, true
	}
	return strconv.Itoa(n), true
}

// POCandidates runs every pattern against the text and returns all distinct
// normalized PO numbers, sorted by their numeric core. Each pattern is tried
// on digit-collapsed text first to repair OCR splits, then on the original.
func POCandidates(text string, patterns []*regexp.Regexp) []string {
	collapsed := CollapseDigitRuns(text)
	seen := make(map[string]struct{})
	for _, re := range patterns {
		matches := re.FindAllStringSubmatch(collapsed, -1)
		if matches == nil {
			matches = re.FindAllStringSubmatch(text, -1)
		}
		for _, m := range matches {
			raw := m[0]
			if len(m) > 1 {
				raw = m[1]
			}
			if po, ok := normalizePOToken(raw); ok {
				seen[po] = struct{}{}
			}
		}
	}
	candidates := make([]string, 0, len(seen))
	for po := range seen {
		candidates = append(candidates, po)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return poCore(candidates[i]) < poCore(candidates[j])
	})
	return candidates
}

func poCore(po string) int {
	main, _, _ := strings.Cut(po, "-")
	n, _ := strconv.Atoi(main)
	return n
}

// ParseAmount strips thousands separators and currency symbols from a raw
// amount string and converts it to a number. A value that fails numeric
// conversion reports false; it is never an error for the whole record.
func ParseAmount(raw string) (float64, bool) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(raw, ",", ""), "$", ""))
	m := amountSearch.FindString(cleaned)
	if m == "" {
		return 0, false
	}
	amount, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// cleanFieldValue normalizes a raw captured value for a field. For the amount
// field the result is a canonical numeric string; the ok result is false when
// the raw text holds nothing usable and the field should stay empty.
func cleanFieldValue(field Field, raw string) (string, bool) {
	switch field {
	case FieldPONumber:
		return NormalizePONumber(raw)
	case FieldAmount:
		amount, ok := ParseAmount(raw)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(amount, 'f', -1, 64), true
	default:
		id := idSearch.FindString(strings.TrimSpace(raw))
		return id, id != ""
	}
}
