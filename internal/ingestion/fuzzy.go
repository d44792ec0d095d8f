package ingestion

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/rpattn/crmdash/internal/domain"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeKey folds a header or field name for fuzzy comparison: accents are stripped,
// letters lower-cased and everything that is not a letter or digit dropped. CJK letters
// survive, so Chinese headers keep distinct keys.
func NormalizeKey(value string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, value)
	if err != nil {
		folded = value
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type column struct {
	header string
	key    string
	value  any
}

// Record is one row after header normalization, with fuzzy field lookup.
type Record struct {
	dataType domain.DataType
	columns  []column
}

// NewRecord maps each header through the alias table of dataType, keeping header order.
func NewRecord(dataType domain.DataType, headers []string, row RawRow) Record {
	columns := make([]column, 0, len(headers))
	for _, header := range headers {
		canonical := CanonicalHeader(dataType, header)
		columns = append(columns, column{
			header: canonical,
			key:    NormalizeKey(canonical),
			value:  row[header],
		})
	}
	return Record{dataType: dataType, columns: columns}
}

// Values returns the row keyed by canonical header. Later duplicates do not overwrite earlier ones.
func (r Record) Values() map[string]any {
	out := make(map[string]any, len(r.columns))
	for _, c := range r.columns {
		if _, ok := out[c.header]; !ok {
			out[c.header] = c.value
		}
	}
	return out
}

// Lookup returns the first non-blank value among columns matching field or one of its aliases.
func (r Record) Lookup(field string) (any, bool) {
	for _, candidate := range fieldCandidates(r.dataType, field) {
		key := NormalizeKey(candidate)
		if key == "" {
			continue
		}
		for _, c := range r.columns {
			if c.key != key {
				continue
			}
			if text := scalarText(c.value); !isBlankToken(text) {
				if s, ok := c.value.(string); ok {
					return strings.TrimSpace(s), true
				}
				return c.value, true
			}
		}
	}
	return nil, false
}

// Text returns the trimmed string form of field, or false when it is absent.
func (r Record) Text(field string) (string, bool) {
	v, ok := r.Lookup(field)
	if !ok {
		return "", false
	}
	return scalarText(v), true
}

// String is Text without the presence flag.
func (r Record) String(field string) string {
	s, _ := r.Text(field)
	return s
}

func scalarText(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

func isBlankToken(s string) bool {
	return s == "" || s == "null" || s == "NULL"
}
