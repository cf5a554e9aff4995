package pipeline

import (
	"regexp"
	"strings"
	"time"
)

// Metadata holds the optional receipt header fields detected in normalized
// text. Missing fields are not an error.
type Metadata struct {
	Date     *time.Time
	Supplier string
}

// datePattern pairs a label regex with the time layout its capture group is
// parsed with. Patterns are tried in order; a regex match whose capture
// fails to parse is silently skipped and the scan falls through to the next
// pattern.
type datePattern struct {
	re     *regexp.Regexp
	layout string
}

var datePatterns = []datePattern{
	{regexp.MustCompile(`fecha:\s*(\d{2}-\d{2}-\d{4})`), "02-01-2006"},
	{regexp.MustCompile(`fecha:\s*(\d{2}/\d{2}/\d{4})`), "02/01/2006"},
}

var supplierPattern = regexp.MustCompile(`proveedor:\s*([^\n]+)`)

// ExtractMetadata scans normalized text for a receipt date and supplier
// name. Input is expected to be lower-cased already (see Normalize).
func ExtractMetadata(text string) Metadata {
	var meta Metadata

	for _, pattern := range datePatterns {
		match := pattern.re.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		parsed, err := time.Parse(pattern.layout, match[1])
		if err != nil {
			continue
		}
		date := parsed.UTC()
		meta.Date = &date
		break
	}

	if match := supplierPattern.FindStringSubmatch(text); match != nil {
		meta.Supplier = strings.TrimSpace(match[1])
	}

	return meta
}
