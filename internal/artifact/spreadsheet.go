// Package artifact renders export payloads into the files jobs upload:
// XLSX workbooks for export rows, CSV for failed-row logs.
package artifact

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"catalog-sync-service/internal/export"
	"catalog-sync-service/internal/models"
)

const (
	productsSheet = "Products"
	parentSheet   = "Parent"
)

// WriteWorkbook renders export rows into an XLSX workbook. Column
// order follows the output template; row keys are codes or labels
// depending on the channel's header mode. Parent rows, when present,
// land on their own sheet.
func WriteWorkbook(result *export.Result, template models.OutputTemplate, codeAsHeader bool) ([]byte, error) {
	headers := headerKeys(template, codeAsHeader)

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetName(sheet, productsSheet); err != nil {
		return nil, err
	}
	if err := writeSheet(f, productsSheet, headers, result.ExportData); err != nil {
		return nil, err
	}

	if len(result.ParentRows) > 0 {
		if _, err := f.NewSheet(parentSheet); err != nil {
			return nil, err
		}
		if err := writeSheet(f, parentSheet, headers, result.ParentRows); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func headerKeys(template models.OutputTemplate, codeAsHeader bool) []string {
	keys := make([]string, 0, len(template.Columns))
	for _, col := range template.Columns {
		if codeAsHeader {
			keys = append(keys, col.Code)
		} else {
			keys = append(keys, col.Label)
		}
	}
	return keys
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows []export.FinalRow) error {
	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range rows {
		values := make([]interface{}, len(headers))
		for j, key := range headers {
			values[j] = row[key]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

var failedRowHeader = []string{"product_id", "product_sku", "variant_id", "variant_sku", "product_type", "remarks"}

// WriteFailedRowsCSV renders the failed-row artifact
func WriteFailedRowsCSV(rows []models.FailedRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(failedRowHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{row.ProductID, row.ProductSKU, row.VariantID, row.VariantSKU, row.ProductType, row.Remarks}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFailedRowsCSV parses a previous run's failed-row artifact; rerun
// jobs use it to filter the working set to previously failed rows.
func ReadFailedRowsCSV(r io.Reader) ([]models.FailedRow, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading failed rows: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	rows := make([]models.FailedRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < len(failedRowHeader) {
			continue
		}
		rows = append(rows, models.FailedRow{
			ProductID:   record[0],
			ProductSKU:  record[1],
			VariantID:   record[2],
			VariantSKU:  record[3],
			ProductType: record[4],
			Remarks:     record[5],
		})
	}
	return rows, nil
}
