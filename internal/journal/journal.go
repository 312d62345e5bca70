package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/awmpietro/shunting-action-validator/internal/rules"
	"github.com/awmpietro/shunting-action-validator/internal/yard"
)

//go:embed schema.sql
var schemaSQL string

var ErrNilReport = errors.New("nil report")

// Entry is one recorded validation decision.
type Entry struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Kind       string    `json:"kind"`
	Unit       string    `json:"unit"`
	Valid      bool      `json:"valid"`
	Reason     string    `json:"reason,omitempty"`
	Policy     string    `json:"policy,omitempty"`
	Violated   []string  `json:"violated,omitempty"`
}

// Journal is an append-only SQLite log of validation decisions.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the journal database at path and applies the schema.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends the decision reached for a.
func (j *Journal) Record(ctx context.Context, a yard.Action, rep *rules.Report) error {
	if rep == nil {
		return ErrNilReport
	}

	var kind, unit string
	if a != nil {
		kind, unit = string(a.Kind()), string(a.Unit())
	}

	violated := make([]string, 0, len(rep.Violations))
	for _, v := range rep.Violations {
		violated = append(violated, v.Rule)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate entry id: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO decisions (id, seq, recorded_at, kind, unit, valid, reason, policy, violated)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM decisions), ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), j.now().UnixNano(), kind, unit, rep.Valid, rep.Reason, rep.Policy, strings.Join(violated, ","),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, recorded_at, kind, unit, valid, reason, policy, violated
		FROM decisions
		ORDER BY seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e        Entry
			at       int64
			violated string
		)
		if err := rows.Scan(&e.ID, &at, &e.Kind, &e.Unit, &e.Valid, &e.Reason, &e.Policy, &violated); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.RecordedAt = time.Unix(0, at).UTC()
		if violated != "" {
			e.Violated = strings.Split(violated, ",")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
