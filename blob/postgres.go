package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

const createBlobsTable = `CREATE TABLE IF NOT EXISTS blobs (
	name    TEXT PRIMARY KEY,
	payload BYTEA NOT NULL
)`

// Postgres stores payloads in a single "blobs" table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with a lib/pq connection string and creates the table if needed.
func OpenPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	p, err := NewPostgres(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgres uses an existing pool. Closing the store closes the pool.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	if _, err := db.ExecContext(ctx, createBlobsTable); err != nil {
		return nil, fmt.Errorf("create blobs table: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Get(ctx context.Context, name string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM blobs WHERE name = $1`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", name, err)
	}
	return payload, nil
}

func (p *Postgres) Put(ctx context.Context, name string, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO blobs (name, payload) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload`,
		name, payload)
	if err != nil {
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	return nil
}

func (p *Postgres) Exists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM blobs WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("could not check %q: %w", name, err)
	}
	return exists, nil
}

func (p *Postgres) Delete(ctx context.Context, name string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = $1`, name); err != nil {
		return fmt.Errorf("could not delete %q: %w", name, err)
	}
	return nil
}

func (p *Postgres) Close() error { return p.db.Close() }
