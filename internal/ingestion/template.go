package ingestion

import (
	"fmt"

	"github.com/rpattn/crmdash/internal/domain"

	"github.com/xuri/excelize/v2"
)

// TemplateFileName is the download name of the template for dataType.
func TemplateFileName(dataType domain.DataType) string {
	return fmt.Sprintf("%s_import_template.xlsx", dataType)
}

// Template builds an empty workbook whose header row holds the canonical columns of dataType.
// Required columns are written in bold.
func Template(dataType domain.DataType) ([]byte, error) {
	fields := Fields(dataType)
	if len(fields) == 0 {
		return nil, fmt.Errorf("unsupported data type %q", dataType)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := string(dataType)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name template sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for idx, field := range fields {
		cell, err := excelize.CoordinatesToCellName(idx+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(sheet, cell, field.Name); err != nil {
			return nil, fmt.Errorf("failed to write header %s: %w", field.Name, err)
		}
		if field.Required {
			if err := f.SetCellStyle(sheet, cell, cell, bold); err != nil {
				return nil, fmt.Errorf("failed to style header %s: %w", field.Name, err)
			}
		}
		col, _ := excelize.ColumnNumberToName(idx + 1)
		_ = f.SetColWidth(sheet, col, col, 20)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write template: %w", err)
	}
	return buf.Bytes(), nil
}
