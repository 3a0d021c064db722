package exporter

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"

	"cnpjserver/importer"
)

// fixtureTable gera uma tabela com dados sintéticos reprodutíveis
func fixtureTable(t *testing.T, rows int) *importer.Table {
	t.Helper()
	gofakeit.Seed(42)

	table := &importer.Table{
		Headers: []string{"Nome", "CNPJ", "Cidade"},
	}
	for i := 0; i < rows; i++ {
		table.Rows = append(table.Rows, []string{
			gofakeit.Company(),
			fmt.Sprintf("%014d", gofakeit.Number(1, 99999999999999)),
			gofakeit.City(),
		})
	}
	return table
}

func TestWriteExcelRoundTrip(t *testing.T) {
	table := fixtureTable(t, 5)

	var buf bytes.Buffer
	if err := WriteExcel(table, &buf); err != nil {
		t.Fatalf("WriteExcel() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if f.GetSheetName(0) != DefaultSheetName {
		t.Errorf("sheet name = %q, want %q", f.GetSheetName(0), DefaultSheetName)
	}

	rows, err := f.GetRows(DefaultSheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("len(rows) = %d, want 6", len(rows))
	}
	for i, header := range table.Headers {
		if rows[0][i] != header {
			t.Errorf("header[%d] = %q, want %q", i, rows[0][i], header)
		}
	}
	for i, row := range table.Rows {
		for j, value := range row {
			if rows[i+1][j] != value {
				t.Errorf("cell (%d,%d) = %q, want %q", i+1, j, rows[i+1][j], value)
			}
		}
	}
}

func TestWriteExcelRemovesDefaultSheet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExcel(fixtureTable(t, 1), &buf); err != nil {
		t.Fatalf("WriteExcel() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		if name == "Sheet1" {
			t.Error("default sheet Sheet1 was not removed")
		}
	}
}

func TestWriteCSV(t *testing.T) {
	table := &importer.Table{
		Headers: []string{"CNPJ", "Razão Social"},
		Rows: [][]string{
			{"11222333000181", "Ação, Vírgula Ltda"},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(table, &buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := "CNPJ,Razão Social\n11222333000181,\"Ação, Vírgula Ltda\"\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}
}

func TestWriteFileUnsupportedExtension(t *testing.T) {
	if err := WriteFile(fixtureTable(t, 1), "saida.txt"); err == nil {
		t.Error("WriteFile() with unsupported extension did not fail")
	}
}
