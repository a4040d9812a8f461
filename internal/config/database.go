package config

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/udovin/gosql"

	// Register SQL drivers.
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseDriver represents name of database driver.
type DatabaseDriver string

const (
	SQLiteDriver   DatabaseDriver = "sqlite"
	PostgresDriver DatabaseDriver = "postgres"
)

// DatabaseOptions represents options of database connection.
type DatabaseOptions interface {
	Driver() DatabaseDriver
	create() (*gosql.DB, error)
}

// SQLiteOptions stores SQLite connection options.
type SQLiteOptions struct {
	Path string `json:"path"`
}

// Driver returns SQLite driver name.
func (o SQLiteOptions) Driver() DatabaseDriver {
	return SQLiteDriver
}

func (o SQLiteOptions) create() (*gosql.DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", o.Path))
	if err != nil {
		return nil, err
	}
	// This can increase writes performance.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	// In-memory databases live in single connection.
	conn.SetMaxOpenConns(1)
	return &gosql.DB{
		DB:      conn,
		RO:      conn,
		Builder: gosql.NewBuilder(gosql.SQLiteDialect),
	}, nil
}

// PostgresOptions stores Postgres connection options.
type PostgresOptions struct {
	Hosts    []string `json:"hosts"`
	User     string   `json:"user"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	SSLMode  string   `json:"sslmode,omitempty"`
}

// Driver returns Postgres driver name.
func (o PostgresOptions) Driver() DatabaseDriver {
	return PostgresDriver
}

// DSN returns connection string for pgx driver.
func (o PostgresOptions) DSN() string {
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(o.User, o.Password),
		Host:   strings.Join(o.Hosts, ","),
		Path:   "/" + o.Name,
	}
	query := url.Values{}
	if o.SSLMode != "" {
		query.Set("sslmode", o.SSLMode)
	}
	query.Set("target_session_attrs", "read-write")
	dsn.RawQuery = query.Encode()
	return dsn.String()
}

func (o PostgresOptions) create() (*gosql.DB, error) {
	conn, err := sql.Open("pgx", o.DSN())
	if err != nil {
		return nil, err
	}
	return &gosql.DB{
		DB:      conn,
		RO:      conn,
		Builder: gosql.NewBuilder(gosql.PostgresDialect),
	}, nil
}

// DB stores configuration for database connection.
type DB struct {
	Options DatabaseOptions `json:"options"`
}

func (c DB) MarshalJSON() ([]byte, error) {
	cfg := struct {
		Driver  DatabaseDriver  `json:"driver"`
		Options DatabaseOptions `json:"options"`
	}{
		Options: c.Options,
	}
	if c.Options != nil {
		cfg.Driver = c.Options.Driver()
	}
	return json.Marshal(cfg)
}

func (c *DB) UnmarshalJSON(bytes []byte) error {
	var cfg struct {
		Driver  DatabaseDriver  `json:"driver"`
		Options json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(bytes, &cfg); err != nil {
		return err
	}
	switch cfg.Driver {
	case SQLiteDriver:
		var options SQLiteOptions
		if err := json.Unmarshal(cfg.Options, &options); err != nil {
			return err
		}
		c.Options = options
	case PostgresDriver:
		var options PostgresOptions
		if err := json.Unmarshal(cfg.Options, &options); err != nil {
			return err
		}
		c.Options = options
	default:
		return fmt.Errorf("driver %q is not supported", cfg.Driver)
	}
	return nil
}

// Create creates database connection using current configuration.
func (c DB) Create() (*gosql.DB, error) {
	if c.Options == nil {
		return nil, fmt.Errorf("database is not configured")
	}
	return c.Options.create()
}
