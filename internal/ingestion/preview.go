package ingestion

import (
	"context"
	"strings"

	"github.com/rpattn/crmdash/internal/domain"
)

// PreviewRequest describes a dry run over an upload.
type PreviewRequest struct {
	DataType   domain.DataType
	FileName   string
	FileBase64 string
	Limit      int
}

// PreviewHeader shows how one column header was mapped.
type PreviewHeader struct {
	Original   string `json:"original"`
	Field      string `json:"field"`
	Recognized bool   `json:"recognized"`
}

// PreviewRow captures sample data and validation feedback.
type PreviewRow struct {
	RowNumber int            `json:"rowNumber"`
	Values    map[string]any `json:"values"`
	Errors    []string       `json:"errors,omitempty"`
}

// PreviewResult returns preview metadata back to clients.
type PreviewResult struct {
	TotalRows     int             `json:"totalRows"`
	InvalidRows   int             `json:"invalidRows"`
	Headers       []PreviewHeader `json:"headers"`
	Rows          []PreviewRow    `json:"rows"`
	MissingFields []string        `json:"missingFields"`
}

// Preview decodes and validates an upload without writing anything. References to other
// records are not resolved, so a row that previews clean can still fail on import.
func (s *Service) Preview(_ context.Context, req PreviewRequest) (PreviewResult, error) {
	dataType, err := domain.ParseDataType(string(req.DataType))
	if err != nil {
		return PreviewResult{}, err
	}
	fileName := req.FileName
	if strings.TrimSpace(fileName) == "" {
		fileName = "preview.xlsx"
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	decoded := DecodeBase64(req.FileBase64, DecodeOptions{
		FileName: fileName,
		MaxBytes: s.limits.MaxBytes,
		MaxRows:  s.limits.MaxRows,
	})
	if decoded.Failure != nil {
		return PreviewResult{}, decoded.Failure
	}
	table := decoded.Table

	result := PreviewResult{
		TotalRows:     table.TotalRows,
		Headers:       make([]PreviewHeader, 0, len(table.Headers)),
		Rows:          []PreviewRow{},
		MissingFields: []string{},
	}

	known := make(map[string]bool)
	for _, f := range fieldTables[dataType] {
		known[f.Name] = true
	}
	present := make(map[string]bool)
	for _, header := range table.Headers {
		field := CanonicalHeader(dataType, header)
		present[NormalizeKey(field)] = true
		result.Headers = append(result.Headers, PreviewHeader{
			Original:   header,
			Field:      field,
			Recognized: known[field],
		})
	}
	for _, f := range fieldTables[dataType] {
		if f.Required && !present[NormalizeKey(f.Name)] && !anyAliasPresent(f, present) {
			result.MissingFields = append(result.MissingFields, f.Name)
		}
	}

	now := s.now()
	for i, raw := range table.Rows {
		rec := NewRecord(dataType, table.Headers, raw)
		_, err := buildRow(dataType, rec, domain.Actor{}, now)
		if err != nil {
			result.InvalidRows++
		}
		if len(result.Rows) >= limit {
			continue
		}
		row := PreviewRow{RowNumber: i + 1, Values: rec.Values()}
		if err != nil {
			row.Errors = []string{err.Error()}
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func anyAliasPresent(f FieldSpec, present map[string]bool) bool {
	for _, alias := range f.Aliases {
		if present[NormalizeKey(alias)] {
			return true
		}
	}
	return false
}
