package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the namespace with a single kv_entries table. Key
// metadata lives in a jsonb column that List returns without touching the
// value column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// ConnectPostgres initializes the connection pool and ensures the
// kv_entries table exists.
func ConnectPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// Try pinging to make sure it's valid
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{db: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key      text PRIMARY KEY,
			value    bytea NOT NULL,
			metadata jsonb NOT NULL DEFAULT '{}'::jsonb
		)
	`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("could not ensure kv schema: %w", err)
	}
	return nil
}

// Close is for graceful shutdown
func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("could not get key: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte, metadata map[string]string) error {
	md, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}

	query := `
		INSERT INTO kv_entries (key, value, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, metadata = EXCLUDED.metadata
	`
	if _, err := s.db.Exec(ctx, query, key, value, md); err != nil {
		return fmt.Errorf("could not put key: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	// deleting an absent key is not an error
	if _, err := s.db.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("could not delete key: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, prefix, cursor string, limit int) (*ListResult, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT key, metadata
		FROM kv_entries
		WHERE key > $1 AND key LIKE $2 || '%'
		ORDER BY key
		LIMIT $3
	`
	rows, err := s.db.Query(ctx, query, cursor, prefix, limit+1)
	if err != nil {
		return nil, fmt.Errorf("could not list keys: %w", err)
	}
	defer rows.Close()

	res := &ListResult{Complete: true}
	for rows.Next() {
		var (
			key string
			md  []byte
		)
		if err := rows.Scan(&key, &md); err != nil {
			return nil, fmt.Errorf("could not scan key row: %w", err)
		}
		metadata := map[string]string{}
		if len(md) > 0 {
			if err := json.Unmarshal(md, &metadata); err != nil {
				return nil, fmt.Errorf("could not decode metadata for %s: %w", key, err)
			}
		}
		res.Keys = append(res.Keys, KeyInfo{Name: key, Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not list keys: %w", err)
	}

	// one extra row was requested to detect whether more pages remain
	if len(res.Keys) > limit {
		res.Keys = res.Keys[:limit]
		res.Cursor = res.Keys[limit-1].Name
		res.Complete = false
	}
	return res, nil
}
