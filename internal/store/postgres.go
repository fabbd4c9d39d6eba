package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheetcheck_sessions (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	workbook   JSONB NOT NULL,
	rules      JSONB NOT NULL DEFAULT '[]',
	config     JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sheetcheck_sessions_updated_at ON sheetcheck_sessions (updated_at);
`

// PoolOptions tunes the connection pool. Zero fields keep pgx defaults.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Postgres is a Store backed by a PostgreSQL table with JSONB sheet columns.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool, checks it with a ping and creates the sessions
// table if it does not exist.
func Connect(ctx context.Context, url string, opts PoolOptions) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := NewPostgres(pool)
	if err := p.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the sessions table.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

// encoded holds the JSONB columns of a session.
type encoded struct {
	workbook, rules, config []byte
}

func encode(s *Session) (encoded, error) {
	var e encoded
	var err error
	if e.workbook, err = json.Marshal(s.Workbook); err != nil {
		return e, fmt.Errorf("encode workbook: %w", err)
	}
	rules := s.Rules
	if rules == nil {
		rules = []core.BusinessRule{}
	}
	if e.rules, err = json.Marshal(rules); err != nil {
		return e, fmt.Errorf("encode rules: %w", err)
	}
	if e.config, err = json.Marshal(s.Config); err != nil {
		return e, fmt.Errorf("encode config: %w", err)
	}
	return e, nil
}

func (p *Postgres) Create(ctx context.Context, s *Session) error {
	e, err := encode(s)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	id := uuid.New()

	_, err = p.pool.Exec(ctx, `
		INSERT INTO sheetcheck_sessions (id, name, workbook, rules, config, created_at, updated_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $6)`,
		id.String(), s.Name, e.workbook, e.rules, e.config, now,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	s.ID, s.CreatedAt, s.UpdatedAt = id, now, now
	return nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	var (
		s                       Session
		workbook, rules, config []byte
	)
	err := p.pool.QueryRow(ctx, `
		SELECT name, workbook, rules, config, created_at, updated_at
		FROM sheetcheck_sessions WHERE id = $1::uuid`,
		id.String(),
	).Scan(&s.Name, &workbook, &rules, &config, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.ID = id
	var wb sheets.Workbook
	if err := json.Unmarshal(workbook, &wb); err != nil {
		return nil, fmt.Errorf("decode workbook: %w", err)
	}
	s.Workbook = wb
	if err := json.Unmarshal(rules, &s.Rules); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := json.Unmarshal(config, &s.Config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, nil
}

func (p *Postgres) Update(ctx context.Context, s *Session) error {
	e, err := encode(s)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tag, err := p.pool.Exec(ctx, `
		UPDATE sheetcheck_sessions
		SET name = $2, workbook = $3, rules = $4, config = $5, updated_at = $6
		WHERE id = $1::uuid`,
		s.ID.String(), s.Name, e.workbook, e.rules, e.config, now,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	s.UpdatedAt = now
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sheetcheck_sessions WHERE id = $1::uuid`, id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrSessionNotFound
	}
	return nil
}

func (p *Postgres) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM sheetcheck_sessions WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
