// Package postgres provides task types that run SQL against a PostgreSQL database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BDNK1/taskforge/runtime/plugin"
	"github.com/lib/pq"
	"github.com/spf13/afero"
)

// Config holds the Postgres plugin configuration
type Config struct {
	ConnectionString  string `yaml:"connection_string" validate:"required,dsn"`
	MaxOpenConns      int    `yaml:"max_open_conns" default:"10" validate:"gte=1,lte=100"`
	MaxIdleConns      int    `yaml:"max_idle_conns" default:"5" validate:"gte=0,lte=50"`
	ConnMaxLifetimeMs int    `yaml:"conn_max_lifetime_ms" default:"300000" validate:"gte=0"` // 5 min default
}

// PostgresPlugin holds the connection pool shared by the postgres tasks of a build.
type PostgresPlugin struct {
	Config Config
	db     *sql.DB
}

// Initialize opens the database connection pool
func (p *PostgresPlugin) Initialize(ctx context.Context) error {
	plugin.LoggerFrom(ctx).Debug("Opening postgres connection pool",
		"connection_string", maskConnectionString(p.Config.ConnectionString),
		"max_open_conns", p.Config.MaxOpenConns,
		"max_idle_conns", p.Config.MaxIdleConns,
		"conn_max_lifetime_ms", p.Config.ConnMaxLifetimeMs)

	db, err := sql.Open("postgres", p.Config.ConnectionString)
	if err != nil {
		return fmt.Errorf("postgres: failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(p.Config.MaxOpenConns)
	db.SetMaxIdleConns(p.Config.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(p.Config.ConnMaxLifetimeMs) * time.Millisecond)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	p.db = db
	return nil
}

// Shutdown closes the database connection pool
func (p *PostgresPlugin) Shutdown(ctx context.Context) error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresPlugin) TaskTypes() map[string]plugin.Task {
	return map[string]plugin.Task{
		"migrate": (*MigrateTask)(nil),
		"query":   (*QueryTask)(nil),
	}
}

func (p *PostgresPlugin) conn() (*sql.DB, error) {
	if p == nil || p.db == nil {
		return nil, fmt.Errorf("postgres plugin is not initialized")
	}
	return p.db, nil
}

// MigrateTask applies the .sql scripts of a directory in path order, each in its own transaction.
// Only scripts added or modified since the last execution are applied.
type MigrateTask struct {
	plugin.DefaultTask
	_ plugin.Actions `actions:"Migrate"`

	Postgres *PostgresPlugin `inject:"postgres"`

	Scripts string `yaml:"scripts" task:"input-directory"`
	Schema  string `yaml:"schema" task:"input-value,optional"`
	Report  string `yaml:"report" task:"output-file"`
}

func (t *MigrateTask) Migrate(ctx context.Context, changes *plugin.InputChanges) error {
	db, err := t.Postgres.conn()
	if err != nil {
		return fmt.Errorf("postgres.migrate: %w", err)
	}
	logger := plugin.LoggerFrom(ctx)
	fs := t.FileSystem()

	var scripts []string
	err = changes.OutOfDate(func(d plugin.InputFileDetails) error {
		if strings.EqualFold(filepath.Ext(d.Path), ".sql") {
			scripts = append(scripts, d.Path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(scripts)

	changes.Removed(func(d plugin.InputFileDetails) error {
		logger.Warn("Migration script removed, changes it applied are kept", "script", d.Path)
		return nil
	})

	applied := make([]string, 0, len(scripts))
	for _, script := range scripts {
		content, err := afero.ReadFile(fs, script)
		if err != nil {
			return fmt.Errorf("postgres.migrate: failed to read %s: %w", script, err)
		}
		if err := t.apply(ctx, db, string(content)); err != nil {
			return fmt.Errorf("postgres.migrate: %s: %w", script, err)
		}
		logger.Info("Applied migration", "script", script)
		applied = append(applied, script)
	}

	report := strings.Join(applied, "\n")
	if len(applied) > 0 {
		report += "\n"
	}
	if err := afero.WriteFile(fs, t.Report, []byte(report), 0o644); err != nil {
		return fmt.Errorf("postgres.migrate: failed to write report: %w", err)
	}
	return nil
}

func (t *MigrateTask) apply(ctx context.Context, db *sql.DB, statements string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if t.Schema != "" {
		if _, err := tx.ExecContext(ctx, "SET LOCAL search_path TO "+pq.QuoteIdentifier(t.Schema)); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, statements); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// QueryTask runs a SELECT and writes the resulting rows to a JSON file.
type QueryTask struct {
	plugin.DefaultTask
	_ plugin.Actions `actions:"Query"`

	Postgres *PostgresPlugin `inject:"postgres"`

	SQL    string `yaml:"sql" task:"input-value"`
	Params []any  `yaml:"params" task:"input-value,optional"`
	Dest   string `yaml:"dest" task:"output-file"`
}

func (t *QueryTask) Query(ctx context.Context) error {
	db, err := t.Postgres.conn()
	if err != nil {
		return fmt.Errorf("postgres.query: %w", err)
	}

	rows, err := db.QueryContext(ctx, t.SQL, t.Params...)
	if err != nil {
		return fmt.Errorf("postgres.query: query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("postgres.query: failed to get columns: %w", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return fmt.Errorf("postgres.query: failed to get column types: %w", err)
	}

	result := []map[string]any{}
	for rows.Next() {
		row, err := scanRow(cols, colTypes, rows)
		if err != nil {
			return fmt.Errorf("postgres.query: failed to scan row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres.query: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("postgres.query: failed to encode rows: %w", err)
	}
	if err := afero.WriteFile(t.FileSystem(), t.Dest, data, 0o644); err != nil {
		return fmt.Errorf("postgres.query: %w", err)
	}
	plugin.LoggerFrom(ctx).Info("Wrote query result", "rows", len(result), "dest", t.Dest)
	return nil
}

// scanRow scans a single row into a map, handling postgres-specific types
func scanRow(cols []string, colTypes []*sql.ColumnType, rows *sql.Rows) (map[string]any, error) {
	values := make([]any, len(cols))
	valuePtrs := make([]any, len(cols))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	result := make(map[string]any)
	for i, col := range cols {
		val := values[i]
		if b, ok := val.([]byte); ok {
			switch colTypes[i].DatabaseTypeName() {
			case "JSONB", "JSON":
				result[col] = json.RawMessage(b)
			default:
				result[col] = string(b)
			}
			continue
		}
		result[col] = val
	}

	return result, nil
}

// maskConnectionString masks the password in a postgres connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	if idx := strings.Index(connStr, "://"); idx >= 0 {
		start = idx + len("://")
	}
	at := strings.Index(connStr[start:], "@")
	if at < 0 {
		return connStr
	}
	at += start
	colon := strings.Index(connStr[start:at], ":")
	if colon < 0 {
		return connStr
	}
	colon += start
	return connStr[:colon+1] + "***" + connStr[at:]
}
