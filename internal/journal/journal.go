package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/graphsync/internal/canon"
	"github.com/roach88/graphsync/internal/source"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - changes table with fingerprint idempotency
const currentSchemaVersion = 1

// Journal is the durable commit log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal at path. Safe to call on an existing
// file; the schema is only created when missing.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Append stores r. It reports false when the identical record was already
// present. A different record under the same seq fails.
func (j *Journal) Append(ctx context.Context, r Record) (bool, error) {
	return appendRecord(ctx, j.db, r)
}

// AppendAll stores records in one transaction: either every record is
// stored or none is.
func (j *Journal) AppendAll(ctx context.Context, records []Record) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append: begin: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if _, err := appendRecord(ctx, tx, r); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append: commit: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendRecord(ctx context.Context, db execer, r Record) (bool, error) {
	if err := r.Validate(); err != nil {
		return false, fmt.Errorf("append: %w", err)
	}
	fp, err := r.Fingerprint()
	if err != nil {
		return false, fmt.Errorf("append %s: %w", r, err)
	}
	fields, err := marshalFields(r.Fields)
	if err != nil {
		return false, fmt.Errorf("append %s: %w", r, err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO changes
		(seq, fingerprint, op, doc, kind, owner, target, parent, after_target, name, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		r.Seq,
		fp,
		string(r.Op),
		string(r.Doc),
		r.Kind.String(),
		string(r.Owner),
		string(r.Target),
		string(r.Parent),
		string(r.After),
		r.Name,
		fields,
	)
	if err != nil {
		return false, fmt.Errorf("append %s: %w", r, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append %s: rows affected: %w", r, err)
	}
	return n == 1, nil
}

// Read returns every record with seq greater than afterSeq, in seq order.
// Returns an empty slice, not nil, when there is nothing to read.
func (j *Journal) Read(ctx context.Context, afterSeq int64) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, op, doc, kind, owner, target, parent, after_target, name, fields
		FROM changes
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return records, nil
}

// LastSeq returns the highest stored seq, 0 for an empty journal.
func (j *Journal) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := j.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM changes").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Count returns the number of stored records.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM changes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count changes: %w", err)
	}
	return n, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		r                                         Record
		op, doc, kind, owner, target, parent, aft string
		fields                                    string
	)
	if err := rows.Scan(&r.Seq, &op, &doc, &kind, &owner, &target, &parent, &aft, &r.Name, &fields); err != nil {
		return Record{}, fmt.Errorf("scan change: %w", err)
	}
	k, err := source.ParseKind(kind)
	if err != nil {
		return Record{}, fmt.Errorf("scan change %d: %w", r.Seq, err)
	}
	r.Op = Op(op)
	r.Doc = source.ID(doc)
	r.Kind = k
	r.Owner = source.ID(owner)
	r.Target = source.Target(target)
	r.Parent = source.Target(parent)
	r.After = source.Target(aft)
	if r.Fields, err = unmarshalFields(fields); err != nil {
		return Record{}, fmt.Errorf("scan change %d: %w", r.Seq, err)
	}
	return r, nil
}

func marshalFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	b, err := canon.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(b), nil
}

func unmarshalFields(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}
