package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

type (
	// Store keeps identities and products in a relational database,
	// either sqlite (a file path) or postgres (a postgres:// url).
	Store struct {
		db     *sql.DB
		driver string
	}

	execer interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}
)

// Placeholders are written as $1..$n, in order of appearance, which both
// drivers understand.

func openDatabase(ctx context.Context, dsn string) (*sql.DB, string, error) {
	var driver, connstr string
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, connstr = "postgres", dsn
	case strings.HasPrefix(dsn, "file:"):
		driver, connstr = "sqlite3", dsn
	case dsn == "":
		return nil, "", errors.New("missing database location")
	default:
		driver = "sqlite3"
		connstr = fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&_fk=1&mode=rwc", dsn)
	}
	conn, err := sql.Open(driver, connstr)
	if err != nil {
		return nil, "", fmt.Errorf("unable to open %v database, cause %v", driver, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, "", fmt.Errorf("unable to ping %v database, cause %v", driver, err)
	}
	return conn, driver, nil
}

// Open connects to the database at dsn and creates any missing table.
func Open(ctx context.Context, dsn string) (*Store, error) {
	conn, driver, err := openDatabase(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn, driver: driver}
	err = s.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init %v database, cause %v", driver, err)
	}
	return s, nil
}

func (s *Store) Driver() string { return s.driver }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists users(
			id text not null primary key,
			login text not null unique,
			password_hash text not null,
			created_at timestamp not null
		)`,
		`create table if not exists products(
			id text not null primary key,
			name text not null,
			description text not null default '',
			quantity bigint not null default 0,
			price double precision not null default 0,
			created_at timestamp not null,
			updated_at timestamp not null
		)`,
		`create index if not exists idx_products_name
			on products(name)
		`,
	} {
		_, err := s.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var perr *pq.Error
	if errors.As(err, &perr) {
		return perr.Code.Name() == "unique_violation"
	}
	return false
}
