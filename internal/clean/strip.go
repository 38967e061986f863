package clean

import (
	"regexp"

	"github.com/ToniPaltus/airflow-intro/internal/dataset"
)

// disallowedChars matches any rune outside whitespace, word characters and
// the punctuation ? ! . , : ; ' ( ) [ ] { } / -. Whitespace and word
// characters are the Unicode sets, not just ASCII.
var disallowedChars = regexp.MustCompile(`[^\s\v\x1c-\x1f\x{85}\p{Z}\p{L}\p{N}_?!.,:;'()\[\]{}/-]+`)

// StripDisallowedChars removes every disallowed rune from the string values
// of Field. Missing and non-string values are left alone.
type StripDisallowedChars struct {
	Field string
}

func (StripDisallowedChars) Name() string { return "strip_disallowed_chars" }

func (s StripDisallowedChars) Apply(d *dataset.Dataset) (*dataset.Dataset, error) {
	col, ok := d.Index(s.Field)
	if !ok {
		return nil, &MissingColumnError{Stage: s.Name(), Column: s.Field}
	}

	rows := make([]dataset.Row, d.Len())
	for i := range rows {
		row := d.Row(i)
		if text, ok := row[col].Str(); ok {
			row[col] = dataset.StringValue(StripText(text))
		}
		rows[i] = row
	}
	return d.Derive(rows)
}

// StripText applies the StripDisallowedChars rule to a single string.
func StripText(s string) string {
	return disallowedChars.ReplaceAllLiteralString(s, "")
}
