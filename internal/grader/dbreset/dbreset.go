// Package dbreset empties the tables of a student's database so that every
// evaluation starts from the same state.
package dbreset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// DefaultTables lists the tables to empty, children first.
var DefaultTables = []string{"Product", "Store", "User"}

// Cleaner deletes every row of a fixed list of tables.
type Cleaner struct {
	db     *sql.DB
	driver string
	tables []string
}

type options struct {
	baseDir string
	tables  []string
}

// Option customizes Open.
type Option func(*options)

// WithBaseDir sets the directory relative SQLite paths resolve against.
// Prisma resolves them against the directory holding schema.prisma.
func WithBaseDir(dir string) Option {
	return func(o *options) { o.baseDir = dir }
}

// WithTables overrides DefaultTables. Order matters: children first.
func WithTables(tables ...string) Option {
	return func(o *options) { o.tables = tables }
}

// Open connects to the database named by a Prisma-style URL. The driver is
// chosen by scheme: file: or a .db path for SQLite, mysql:// for MySQL and
// postgres:// or postgresql:// for PostgreSQL.
func Open(ctx context.Context, rawURL string, opts ...Option) (*Cleaner, error) {
	o := options{tables: DefaultTables}
	for _, opt := range opts {
		opt(&o)
	}

	driver, dsn, err := parseURL(rawURL, o.baseDir)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	return &Cleaner{db: db, driver: driver, tables: o.tables}, nil
}

// Driver returns the database/sql driver in use.
func (c *Cleaner) Driver() string {
	return c.driver
}

// Reset deletes all rows from each table in order. A failing table does not
// stop the others; the errors are joined.
func (c *Cleaner) Reset(ctx context.Context) error {
	var errs []error
	for _, table := range c.tables {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM "+c.quote(table)); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", table, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes the connection.
func (c *Cleaner) Close() error {
	return c.db.Close()
}

func (c *Cleaner) quote(name string) string {
	if c.driver == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func parseURL(rawURL, baseDir string) (driver, dsn string, err error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "":
		return "", "", errors.New("empty database URL")
	case strings.HasPrefix(rawURL, "file:"), strings.HasSuffix(rawURL, ".db"):
		path, err := sqlitePath(rawURL, baseDir)
		return "sqlite", path, err
	case strings.HasPrefix(rawURL, "mysql://"):
		dsn, err := mysqlDSN(rawURL)
		return "mysql", dsn, err
	case strings.HasPrefix(rawURL, "postgres://"), strings.HasPrefix(rawURL, "postgresql://"):
		dsn, err := postgresDSN(rawURL)
		return "postgres", dsn, err
	}
	return "", "", fmt.Errorf("unsupported database URL %q", redact(rawURL))
}

// sqlitePath turns "file:./dev.db" into a filesystem path. The file must
// already exist; opening a missing path would create an empty database.
func sqlitePath(rawURL, baseDir string) (string, error) {
	path := strings.TrimPrefix(rawURL, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "", fmt.Errorf("no path in SQLite URL %q", rawURL)
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("sqlite database: %w", err)
	}
	return path, nil
}

func mysqlDSN(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse MySQL URL: %w", err)
	}

	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	if cfg.DBName == "" {
		return "", errors.New("MySQL URL has no database name")
	}
	return cfg.FormatDSN(), nil
}

// prismaOnlyParams are accepted by Prisma but meaningless to lib/pq.
var prismaOnlyParams = []string{"connection_limit", "pool_timeout", "pgbouncer", "socket_timeout", "statement_cache_size"}

func postgresDSN(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse PostgreSQL URL: %w", err)
	}
	u.Scheme = "postgres"

	q := u.Query()
	if schema := q.Get("schema"); schema != "" {
		q.Set("search_path", schema)
	}
	q.Del("schema")
	for _, p := range prismaOnlyParams {
		q.Del(p)
	}
	switch q.Get("sslmode") {
	case "", "prefer":
		q.Set("sslmode", "disable")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
