package ingestion

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExcelKeepsRawScalars(t *testing.T) {
	payload := xlsxBytes(t,
		[]any{"Name", "Employees", "Listed", "Notes"},
		[]any{"Acme", 250, true, "  spaced  "},
		[]any{},
		[]any{"Beta", 12.5},
	)

	result := Decode(payload, DecodeOptions{FileName: "orgs.xlsx"})
	require.Nil(t, result.Failure)

	table := result.Table
	assert.Equal(t, []string{"Name", "Employees", "Listed", "Notes"}, table.Headers)
	assert.Equal(t, 2, table.TotalRows)
	require.Len(t, table.Rows, 2)

	first := table.Rows[0]
	assert.Equal(t, "Acme", first["Name"])
	assert.Equal(t, float64(250), first["Employees"])
	assert.Equal(t, true, first["Listed"])
	assert.Equal(t, "  spaced  ", first["Notes"])

	second := table.Rows[1]
	assert.Equal(t, 12.5, second["Employees"])
	v, ok := second["Notes"]
	assert.True(t, ok, "missing cells decode to an explicit nil")
	assert.Nil(t, v)
	assert.Nil(t, second["Listed"])
}

func TestDecodeSkipsLeadingBlankRowsAndFixesHeaders(t *testing.T) {
	payload := xlsxBytes(t,
		[]any{},
		[]any{"Name", "", "Name"},
		[]any{"a", "b", "c"},
	)

	result := Decode(payload, DecodeOptions{})
	require.Nil(t, result.Failure)
	assert.Equal(t, []string{"Name", "column_2", "Name_2"}, result.Table.Headers)
	assert.Equal(t, "c", result.Table.Rows[0]["Name_2"])
}

func TestSanitizeHeadersNeverReusesAName(t *testing.T) {
	assert.Equal(t, []string{"a", "a_3", "a_2"}, sanitizeHeaders([]string{"a", "a", "a_2"}))
	assert.Equal(t, []string{"a_2", "a", "a_3"}, sanitizeHeaders([]string{"a_2", "a", "a"}))

	payload := []byte("a,a,a_2\n1,2,3\n")
	result := Decode(payload, DecodeOptions{FileName: "dupes.csv"})
	require.Nil(t, result.Failure)
	row := result.Table.Rows[0]
	assert.Equal(t, "1", row["a"])
	assert.Equal(t, "2", row["a_3"])
	assert.Equal(t, "3", row["a_2"])
}

func TestDecodeCSV(t *testing.T) {
	payload := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Company Name,Industry\nAcme,Tech\n,\nBeta\n")...)

	result := Decode(payload, DecodeOptions{FileName: "orgs.csv"})
	require.Nil(t, result.Failure)
	assert.Equal(t, []string{"Company Name", "Industry"}, result.Table.Headers)
	require.Len(t, result.Table.Rows, 2)
	assert.Equal(t, "Acme", result.Table.Rows[0]["Company Name"])
	assert.Nil(t, result.Table.Rows[1]["Industry"])
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		opts    DecodeOptions
		reason  string
	}{
		{name: "empty", payload: nil, reason: "file is empty"},
		{name: "corrupt", payload: []byte("not a zip"), reason: "unable to read spreadsheet"},
		{name: "unsupported", payload: []byte("x"), opts: DecodeOptions{FileName: "old.xls"}, reason: "unsupported file format .xls"},
		{name: "header only", payload: xlsxBytes(t, []any{"Name"}), reason: "no data rows"},
		{name: "too big", payload: []byte("abcdef"), opts: DecodeOptions{MaxBytes: 3}, reason: "byte limit"},
		{name: "too many rows", payload: xlsxBytes(t, []any{"Name"}, []any{"a"}, []any{"b"}), opts: DecodeOptions{MaxRows: 1}, reason: "limit is 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Decode(tt.payload, tt.opts)
			require.NotNil(t, result.Failure)
			assert.Contains(t, result.Failure.Error(), tt.reason)
		})
	}
}

func TestDecodeBase64AcceptsDataURL(t *testing.T) {
	payload := xlsxBytes(t, []any{"Name"}, []any{"Acme"})
	encoded := "data:application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;base64," +
		base64.StdEncoding.EncodeToString(payload)

	result := DecodeBase64(encoded, DecodeOptions{})
	require.Nil(t, result.Failure)
	assert.Equal(t, "Acme", result.Table.Rows[0]["Name"])

	bad := DecodeBase64("%%%", DecodeOptions{})
	require.NotNil(t, bad.Failure)
	assert.Contains(t, bad.Failure.Reason, "base64")
}
