package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Table planilha em memória: cabeçalho mais linhas na ordem de origem.
// Linhas sempre têm o mesmo comprimento do cabeçalho.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ColumnIndex localiza uma coluna pelo nome; tenta primeiro o nome exato e
// depois comparação sem caixa e sem espaços nas bordas. Retorna -1 se ausente.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	want := strings.TrimSpace(strings.ToLower(name))
	for i, h := range t.Headers {
		if strings.TrimSpace(strings.ToLower(h)) == want {
			return i
		}
	}
	return -1
}

// Cell retorna o valor de uma célula; fora dos limites vira string vazia
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// ReadExcel lê uma planilha xlsx/xls. Nome de aba vazio seleciona a primeira aba.
func ReadExcel(r io.Reader, sheet string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no sheets found in Excel file")
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty, expected a header row", sheet)
	}

	return buildTable(rows), nil
}

// ReadExcelFile lê uma planilha xlsx/xls do disco
func ReadExcelFile(path, sheet string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadExcel(file, sheet)
}

// ReadCSV lê um CSV em UTF-8. Arquivos legados exportados no Windows em pt-BR
// costumam vir em Windows-1252; quando o conteúdo não é UTF-8 válido, decodifica
// com esse charmap antes de parsear.
func ReadCSV(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV as Windows-1252: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1 // linhas irregulares são preenchidas depois

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV is empty, expected a header row")
	}

	return buildTable(rows), nil
}

// sniffDelimiter escolhe o separador pela linha de cabeçalho. O Excel em
// locale pt-BR exporta CSV com ponto e vírgula.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// ReadCSVFile lê um CSV do disco
func ReadCSVFile(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadCSV(file)
}

// ReadFile despacha pela extensão do arquivo (.xlsx/.xls/.csv)
func ReadFile(path, sheet string) (*Table, error) {
	switch {
	case hasExtension(path, ".xlsx", ".xls"):
		return ReadExcelFile(path, sheet)
	case hasExtension(path, ".csv"):
		return ReadCSVFile(path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", path)
	}
}

func hasExtension(path string, exts ...string) bool {
	lower := strings.ToLower(path)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// buildTable monta a Table preenchendo linhas curtas até a largura do cabeçalho
func buildTable(rows [][]string) *Table {
	headers := rows[0]
	table := &Table{
		Headers: headers,
		Rows:    make([][]string, 0, len(rows)-1),
	}

	for _, row := range rows[1:] {
		padded := make([]string, len(headers))
		copy(padded, row)
		table.Rows = append(table.Rows, padded)
	}
	return table
}
