package aralert_api

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	sample      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	genes       INTEGER NOT NULL,
	reads       INTEGER NOT NULL,
	classes     TEXT NOT NULL,
	report_path TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// The separator of the classes column
const classSeparator = ";"

// A struct representing one processed sample
type Run struct {
	// The unique id of the run
	ID string

	// The name of the sample
	Sample string

	// When the run finished
	CreatedAt time.Time

	// The number of detected genes
	Genes int

	// The number of mapped reads
	Reads int

	// The antibiotic classes reported for the sample
	Classes []string

	// The location of the written report
	ReportPath string
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.New().String()
}

// History keeps a log of processed samples in a sqlite database.
type History struct {
	db *sql.DB
}

// OpenHistory opens or creates the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// a single connection keeps ":memory:" databases alive between calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close closes the database connection
func (h *History) Close() error {
	return h.db.Close()
}

// Record stores a run. A missing id or time is filled in.
func (h *History) Record(run Run) (Run, error) {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := h.db.Exec(
		"INSERT INTO runs (id, sample, created_at, genes, reads, classes, report_path) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Sample, run.CreatedAt.UnixNano(), run.Genes, run.Reads, strings.Join(run.Classes, classSeparator), run.ReportPath,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first.
func (h *History) List(limit int) ([]Run, error) {
	rows, err := h.db.Query(
		"SELECT id, sample, created_at, genes, reads, classes, report_path FROM runs ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt int64
			classes   string
		)
		if err := rows.Scan(&run.ID, &run.Sample, &createdAt, &run.Genes, &run.Reads, &classes, &run.ReportPath); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt = time.Unix(0, createdAt)
		if classes != "" {
			run.Classes = strings.Split(classes, classSeparator)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
