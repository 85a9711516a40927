package export

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/iksnae/llm-inspector/internal"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE sessions (
	id   TEXT PRIMARY KEY,
	name TEXT
);
CREATE TABLE exchanges (
	session_id    TEXT NOT NULL,
	idx           INTEGER NOT NULL,
	id            TEXT NOT NULL,
	timestamp     TEXT,
	model         TEXT,
	latency_ms    REAL,
	input_tokens  INTEGER,
	output_tokens INTEGER,
	system_prompt TEXT,
	response_text TEXT,
	PRIMARY KEY (session_id, idx)
);
CREATE TABLE messages (
	exchange_id TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	role        TEXT NOT NULL,
	content     TEXT NOT NULL
);
CREATE TABLE tool_events (
	seq          INTEGER PRIMARY KEY,
	exchange_id  TEXT NOT NULL,
	exchange_idx INTEGER NOT NULL,
	kind         TEXT NOT NULL,
	name         TEXT NOT NULL,
	tool_id      TEXT,
	source       TEXT NOT NULL,
	summary      TEXT,
	is_error     INTEGER NOT NULL,
	category     INTEGER NOT NULL
);`

// SQLiteExporter writes the session into a SQLite database file for ad hoc queries
type SQLiteExporter struct{}

// Export builds the database in a temporary file and copies it to w
func (e *SQLiteExporter) Export(session *internal.NormalizedSession, w io.Writer) error {
	dir, err := os.MkdirTemp("", "llm-inspector-export-*")
	if err != nil {
		return &internal.ExportError{Format: "sqlite", Err: err}
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "session.db")
	if err := WriteSQLite(path, session); err != nil {
		return &internal.ExportError{Format: "sqlite", Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return &internal.ExportError{Format: "sqlite", Path: path, Err: err}
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}

// Extension returns the file extension for this format
func (e *SQLiteExporter) Extension() string {
	return "db"
}

// WriteSQLite creates a database at path holding the session, its messages and its tool timeline
func WriteSQLite(path string, session *internal.NormalizedSession) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO sessions (id, name) VALUES (?, ?)`, session.ID, session.Name); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for i, ex := range session.Exchanges {
		var input, output int
		if ex.Usage != nil {
			input, output = ex.Usage.InputTokens, ex.Usage.OutputTokens
		}
		var system sql.NullString
		if ex.SystemPrompt != nil {
			system = sql.NullString{String: *ex.SystemPrompt, Valid: true}
		}
		response := internal.BlockContent(ex.ResponseContent...).PlainText()

		if _, err := tx.Exec(
			`INSERT INTO exchanges (session_id, idx, id, timestamp, model, latency_ms, input_tokens, output_tokens, system_prompt, response_text)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, i, ex.ID, ex.Timestamp, ex.Model, ex.LatencyMs, input, output, system, response,
		); err != nil {
			return fmt.Errorf("insert exchange %s: %w", ex.ID, err)
		}

		for j, msg := range ex.Messages {
			content, err := json.Marshal(msg.Content)
			if err != nil {
				return fmt.Errorf("encode message %d of %s: %w", j, ex.ID, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO messages (exchange_id, idx, role, content) VALUES (?, ?, ?, ?)`,
				ex.ID, j, string(msg.Role), string(content),
			); err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}
	}

	timeline := internal.BuildTimeline(session.Exchanges, internal.ScanLatestTurn)
	for _, ev := range timeline.Events {
		category, _ := timeline.Category(ev.Name)
		if _, err := tx.Exec(
			`INSERT INTO tool_events (seq, exchange_id, exchange_idx, kind, name, tool_id, source, summary, is_error, category)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.SequenceIndex, ev.ExchangeID, ev.ExchangeIndex, string(ev.Kind), ev.Name, ev.ID,
			string(ev.Source), ev.Summary, ev.IsError, category,
		); err != nil {
			return fmt.Errorf("insert tool event: %w", err)
		}
	}

	return tx.Commit()
}
