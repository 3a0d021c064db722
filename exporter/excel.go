package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"cnpjserver/importer"
)

// DefaultSheetName aba de saída do resultado enriquecido
const DefaultSheetName = "Resultado"

// WriteExcel grava a tabela como xlsx com linha de cabeçalho estilizada
func WriteExcel(t *importer.Table, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(DefaultSheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve cell name: %w", err)
		}
		if err := f.SetCellValue(DefaultSheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(DefaultSheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for rowIdx, row := range t.Rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to resolve cell name: %w", err)
			}
			if err := f.SetCellValue(DefaultSheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// WriteExcelFile grava a tabela como xlsx no disco
func WriteExcelFile(t *importer.Table, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return WriteExcel(t, file)
}

// WriteCSV grava a tabela como CSV UTF-8
func WriteCSV(t *importer.Table, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteFile despacha pela extensão do arquivo (.xlsx/.csv)
func WriteFile(t *importer.Table, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteExcelFile(t, path)
	case ".csv":
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer file.Close()
		return WriteCSV(t, file)
	default:
		return fmt.Errorf("unsupported output extension: %s", path)
	}
}
