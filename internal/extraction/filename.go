package extraction

import "regexp"

// FilenameTag holds the fields derived from a scan filename.
type FilenameTag struct {
	Period       string // YYYY-MM
	SupplierCode string
}

// Scan filenames follow YYYY-MM_SUPPLIERCODE_<anything>.pdf.
var filenamePattern = regexp.MustCompile(`^(\d{4}-\d{2})_([A-Za-z0-9]+)_`)

// MatchFilename parses a scan filename into its period and supplier code.
// It returns nil when the filename does not follow the naming convention;
// callers must treat that as "manual classification required" rather than
// guessing a code.
func MatchFilename(filename string) *FilenameTag {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return nil
	}
	return &FilenameTag{
		Period:       m[1],
		SupplierCode: m[2],
	}
}
