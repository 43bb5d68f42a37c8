package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	// Import database drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection. Queries are written with "?" placeholders and
// rebound for the active driver.
type DB struct {
	conn   *sql.DB
	q      queryer
	driver string
}

// Options selects the backing engine.
type Options struct {
	Driver string
	// DSN is a file path for sqlite and a connection URL for postgres.
	DSN string
}

// NewDB opens a sqlite database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	return Open(context.Background(), Options{Driver: DriverSQLite, DSN: path})
}

// Open connects to the configured engine and runs migrations.
func Open(ctx context.Context, opts Options) (*DB, error) {
	driverName, dsn, err := driverDSN(opts)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	if err := runMigrations(opts.Driver, driverName, dsn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &DB{conn: conn, q: conn, driver: opts.Driver}, nil
}

func driverDSN(opts Options) (driverName, dsn string, err error) {
	switch opts.Driver {
	case DriverSQLite, "":
		if opts.DSN == "" {
			return "", "", fmt.Errorf("sqlite: empty database path")
		}
		sep := "?"
		if strings.Contains(opts.DSN, "?") {
			sep = "&"
		}
		return "sqlite", opts.DSN + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case DriverPostgres:
		if opts.DSN == "" {
			return "", "", fmt.Errorf("postgres: empty connection url")
		}
		return "pgx", opts.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

// Driver returns the engine name this DB talks to.
func (db *DB) Driver() string {
	if db.driver == "" {
		return DriverSQLite
	}
	return db.driver
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ExecTx runs fn against a DB bound to a single transaction.
func (db *DB) ExecTx(ctx context.Context, fn func(*DB) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&DB{conn: db.conn, q: tx, driver: db.driver}); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := db.q.ExecContext(ctx, db.rebind(query), args...)
	return res, classify(err)
}

func (db *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := db.q.QueryContext(ctx, db.rebind(query), args...)
	return rows, classify(err)
}

func (db *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return db.q.QueryRowContext(ctx, db.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id statement.
func (db *DB) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := db.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}
