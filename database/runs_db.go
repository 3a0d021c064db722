package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RunsDB armazena o histórico de execuções de enriquecimento.
// Guarda apenas os contadores agregados de cada execução; resultados de
// consulta nunca são persistidos entre execuções.
type RunsDB struct {
	conn *sql.DB
}

// RunRecord uma execução registrada
type RunRecord struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	Rows       int       `json:"rows"`
	Unique     int       `json:"unique_cnpjs"`
	Success    int       `json:"success"`
	Invalid    int       `json:"invalid"`
	Errors     int       `json:"errors"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

const runsSchema = `
CREATE TABLE IF NOT EXISTS enrichment_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name TEXT NOT NULL,
	row_count INTEGER NOT NULL DEFAULT 0,
	unique_count INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	invalid_count INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_enrichment_runs_created_at ON enrichment_runs(created_at);
`

// OpenRunsDB abre (criando se necessário) o banco de histórico
func OpenRunsDB(path string) (*RunsDB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open runs database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to runs database: %w", err)
	}

	if _, err := conn.Exec(runsSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create runs schema: %w", err)
	}

	return &RunsDB{conn: conn}, nil
}

// SaveRun registra uma execução e preenche o ID do registro
func (db *RunsDB) SaveRun(rec *RunRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	result, err := db.conn.Exec(`
		INSERT INTO enrichment_runs
			(file_name, row_count, unique_count, success_count, invalid_count, error_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FileName, rec.Rows, rec.Unique, rec.Success, rec.Invalid, rec.Errors,
		rec.DurationMS, rec.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run id: %w", err)
	}
	rec.ID = id
	return nil
}

// ListRuns retorna as execuções mais recentes, da mais nova para a mais antiga
func (db *RunsDB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(`
		SELECT id, file_name, row_count, unique_count, success_count, invalid_count, error_count, duration_ms, created_at
		FROM enrichment_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.FileName, &rec.Rows, &rec.Unique,
			&rec.Success, &rec.Invalid, &rec.Errors, &rec.DurationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.CreatedAt = parseTimestamp(createdAt)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close fecha a conexão com o banco
func (db *RunsDB) Close() error {
	return db.conn.Close()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp aceita os formatos que o sqlite devolve conforme a origem da escrita
func parseTimestamp(value string) time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
