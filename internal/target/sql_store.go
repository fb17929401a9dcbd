package target

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"echoburst/internal/runner"
)

// Dialect selects the SQL flavour of a SQLStore.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
)

func (d Dialect) driver() string {
	if d == MySQL {
		return "mysql"
	}
	return "postgres"
}

// SQLStore writes every person as a new row and reads it back.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL connects, pings and migrates.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", dialect.driver(), err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect.driver(), err)
	}

	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open handle without touching the schema.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case MySQL:
		ddl = `CREATE TABLE IF NOT EXISTS persons (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			first_name VARCHAR(255) NOT NULL,
			last_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS persons (
			id BIGSERIAL PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to migrate persons: %w", err)
	}
	return nil
}

func (s *SQLStore) AddPerson(ctx context.Context, p runner.Record) (runner.Record, error) {
	if p.Email == "" {
		return runner.Record{}, ErrInvalidPerson
	}

	var out runner.Record
	if s.dialect == MySQL {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO persons (first_name, last_name, email) VALUES (?, ?, ?)`,
			p.FirstName, p.LastName, p.Email)
		if err != nil {
			return out, fmt.Errorf("insert person: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return out, fmt.Errorf("insert person: %w", err)
		}
		err = s.db.QueryRowContext(ctx,
			`SELECT first_name, last_name, email FROM persons WHERE id = ?`, id,
		).Scan(&out.FirstName, &out.LastName, &out.Email)
		if err != nil {
			return out, fmt.Errorf("read back person %d: %w", id, err)
		}
		return out, nil
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO persons (first_name, last_name, email) VALUES ($1, $2, $3)
		 RETURNING first_name, last_name, email`,
		p.FirstName, p.LastName, p.Email,
	).Scan(&out.FirstName, &out.LastName, &out.Email)
	if err != nil {
		return out, fmt.Errorf("insert person: %w", err)
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
