package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the journal database inside the state directory.
const FileName = "journal.db"

// Fixed-width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Kind classifies a journal entry.
type Kind string

const (
	KindNotify    Kind = "notify"
	KindCompanion Kind = "companion"
)

// Entry is one dispatched action.
type Entry struct {
	ID         int64     `json:"id"`
	Printer    string    `json:"printer"`
	Kind       Kind      `json:"kind"`
	Status     string    `json:"status,omitempty"`
	Completion *float64  `json:"completion,omitempty"`
	Source     string    `json:"source,omitempty"`
	Attachment bool      `json:"attachment"`
	Delivered  bool      `json:"delivered"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Query filters Recent.
type Query struct {
	Printer string
	Kind    Kind
	Limit   int
}

// Journal is the SQLite-backed dispatch history.
type Journal struct {
	db   *sql.DB
	path string
}

// Open creates or opens the journal under stateDir and applies migrations.
func Open(ctx context.Context, stateDir string) (*Journal, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	dbPath := filepath.Join(stateDir, FileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: dbPath}
	if err := j.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Path returns the database file location.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Append records entry. A zero CreatedAt is stamped with the current time.
func (j *Journal) Append(ctx context.Context, entry Entry) (int64, error) {
	if j == nil || j.db == nil {
		return 0, nil
	}
	if strings.TrimSpace(entry.Printer) == "" {
		return 0, fmt.Errorf("journal entry requires a printer")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	var completion sql.NullFloat64
	if entry.Completion != nil {
		completion = sql.NullFloat64{Float64: *entry.Completion, Valid: true}
	}

	res, err := j.db.ExecContext(ctx,
		`INSERT INTO dispatch_log (
            printer, kind, status, completion, source, attachment, delivered, detail, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Printer,
		string(entry.Kind),
		entry.Status,
		completion,
		entry.Source,
		boolToInt(entry.Attachment),
		boolToInt(entry.Delivered),
		entry.Detail,
		entry.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal entry id: %w", err)
	}
	return id, nil
}

// Recent returns the newest entries first.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}

	var (
		clauses []string
		args    []any
	)
	if printer := strings.TrimSpace(q.Printer); printer != "" {
		clauses = append(clauses, "printer = ?")
		args = append(args, printer)
	}
	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(q.Kind))
	}
	query := `SELECT id, printer, kind, status, completion, source, attachment, delivered, detail, created_at FROM dispatch_log`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return out, nil
}

// Prune deletes entries older than cutoff and reports how many were removed.
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if j == nil || j.db == nil {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx, "DELETE FROM dispatch_log WHERE created_at < ?", cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune journal rows: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry      Entry
		kind       string
		completion sql.NullFloat64
		attachment int
		delivered  int
		createdAt  string
	)
	if err := row.Scan(&entry.ID, &entry.Printer, &kind, &entry.Status, &completion, &entry.Source, &attachment, &delivered, &entry.Detail, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scan journal entry: %w", err)
	}
	entry.Kind = Kind(kind)
	if completion.Valid {
		value := completion.Float64
		entry.Completion = &value
	}
	entry.Attachment = attachment != 0
	entry.Delivered = delivered != 0
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
