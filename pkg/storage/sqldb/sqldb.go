// Package sqldb implements storage.Driver over database/sql. The SQLite and
// PostgreSQL drivers share it and differ only in placeholder style.
package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

// Placeholder selects the bind parameter syntax of a SQL dialect.
type Placeholder int

const (
	// Question uses "?" (SQLite).
	Question Placeholder = iota

	// Dollar uses "$1", "$2", ... (PostgreSQL).
	Dollar
)

// Schema creates the turns table. It is valid for both SQLite and PostgreSQL.
const Schema = `
CREATE TABLE IF NOT EXISTS turns (
	id                TEXT PRIMARY KEY,
	provider          TEXT NOT NULL,
	model             TEXT NOT NULL DEFAULT '',
	messages          TEXT NOT NULL,
	content           TEXT NOT NULL,
	finish_reason     TEXT NOT NULL DEFAULT '',
	prompt_tokens     INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	duration_ms       BIGINT NOT NULL DEFAULT 0,
	created_at        BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS turns_created_at_idx ON turns (created_at);
CREATE INDEX IF NOT EXISTS turns_provider_idx ON turns (provider);
`

const columns = "id, provider, model, messages, content, finish_reason, prompt_tokens, completion_tokens, duration_ms, created_at"

// Driver implements storage.Driver over a *sql.DB.
type Driver struct {
	db          *sql.DB
	placeholder Placeholder
}

// New wraps db and creates the schema.
func New(ctx context.Context, db *sql.DB, placeholder Placeholder) (*Driver, error) {
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Driver{db: db, placeholder: placeholder}, nil
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// Put inserts turn unless its ID is already stored.
func (d *Driver) Put(ctx context.Context, turn *storage.Turn) (bool, error) {
	if turn == nil {
		return false, errors.New("cannot store nil turn")
	}
	if turn.ID == "" {
		return false, errors.New("cannot store turn without id")
	}

	messages, err := json.Marshal(turn.Messages)
	if err != nil {
		return false, fmt.Errorf("encoding messages: %w", err)
	}

	var prompt, completion int
	if turn.Usage != nil {
		prompt, completion = turn.Usage.PromptTokens, turn.Usage.CompletionTokens
	}

	query := d.rebind(`INSERT INTO turns (` + columns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)

	res, err := d.db.ExecContext(ctx, query,
		turn.ID,
		turn.Provider,
		turn.Model,
		string(messages),
		turn.Content,
		turn.FinishReason,
		prompt,
		completion,
		turn.Duration.Milliseconds(),
		turn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("inserting turn %s: %w", turn.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting turn %s: %w", turn.ID, err)
	}
	return n > 0, nil
}

// Get retrieves a turn by ID.
func (d *Driver) Get(ctx context.Context, id string) (*storage.Turn, error) {
	row := d.db.QueryRowContext(ctx, d.rebind(`SELECT `+columns+` FROM turns WHERE id = ?`), id)

	turn, err := scanTurn(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting turn %s: %w", id, err)
	}
	return turn, nil
}

// List returns turns newest first.
func (d *Driver) List(ctx context.Context, query storage.Query) ([]*storage.Turn, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + columns + ` FROM turns`)
	if query.Provider != "" {
		sb.WriteString(` WHERE provider = ?`)
		args = append(args, query.Provider)
	}
	sb.WriteString(` ORDER BY created_at DESC, id DESC LIMIT ?`)
	args = append(args, query.EffectiveLimit())

	rows, err := d.db.QueryContext(ctx, d.rebind(sb.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	turns := []*storage.Turn{}
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}

	return turns, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTurn(s scanner) (*storage.Turn, error) {
	var (
		turn                  storage.Turn
		messages              string
		prompt, completion    int
		durationMs, createdAt int64
	)

	if err := s.Scan(
		&turn.ID,
		&turn.Provider,
		&turn.Model,
		&messages,
		&turn.Content,
		&turn.FinishReason,
		&prompt,
		&completion,
		&durationMs,
		&createdAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(messages), &turn.Messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	if prompt != 0 || completion != 0 {
		turn.Usage = &llm.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		}
	}
	turn.Duration = time.Duration(durationMs) * time.Millisecond
	turn.CreatedAt = time.UnixMilli(createdAt)

	return &turn, nil
}

// rebind rewrites "?" placeholders for the driver's dialect.
func (d *Driver) rebind(query string) string {
	if d.placeholder == Question {
		return query
	}

	var (
		sb strings.Builder
		n  int
	)
	sb.Grow(len(query) + 8)
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
