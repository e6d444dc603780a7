package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dailysummary/internal/config"
	"dailysummary/internal/finalize"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLWriter replaces a summary table on each write.
type SQLWriter struct {
	db      *sql.DB
	dialect Dialect
	driver  string
	table   string
}

// OpenSQL opens the configured database. For sqlite the DSN is a file path
// whose directory is created when missing.
func OpenSQL(cfg config.SQLConfig) (*SQLWriter, error) {
	driver, dialect, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sql sink: dsn is empty")
	}
	table := cfg.Table
	if table == "" {
		table = config.Defaults().Output.SQL.Table
	}
	if driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return &SQLWriter{db: db, dialect: dialect, driver: driver, table: table}, nil
}

func (w *SQLWriter) Close() error { return w.db.Close() }

// Driver returns the database/sql driver name in use.
func (w *SQLWriter) Driver() string { return w.driver }

// Write drops and recreates the summary table and inserts every row in one
// transaction. Columns are the summary's internal field names; date and
// store_name are text, metrics are floating point.
func (w *SQLWriter) Write(ctx context.Context, s finalize.Summary) error {
	fields := s.Fields()
	q := w.dialect.Quote
	table := q(w.table)

	defs := make([]string, 0, len(fields))
	cols := make([]string, 0, len(fields))
	ph := make([]string, 0, len(fields))
	for i, f := range fields {
		typ := w.dialect.RealType()
		if i < 2 {
			typ = w.dialect.TextType()
		}
		defs = append(defs, q(f)+" "+typ)
		cols = append(cols, q(f))
		ph = append(ph, w.dialect.Placeholder(i+1))
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return fmt.Errorf("drop %s: %w", w.table, err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+table+` (`+strings.Join(defs, ",")+`)`); err != nil {
		return fmt.Errorf("create %s: %w", w.table, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (`+strings.Join(cols, ",")+`) VALUES (`+strings.Join(ph, ",")+`)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, rec := range s.Records() {
		args := make([]any, 0, len(rec))
		args = append(args, rec[0], rec[1])
		for _, v := range rec[2:] {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("row %s|%s: %w", rec[0], rec[1], err)
			}
			args = append(args, f)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s|%s: %w", rec[0], rec[1], err)
		}
	}
	idx := q("idx_" + w.table + "_date_store")
	if _, err := tx.ExecContext(ctx, `CREATE INDEX `+idx+` ON `+table+` (`+q(fields[0])+`,`+q(fields[1])+`)`); err != nil {
		return fmt.Errorf("index %s: %w", w.table, err)
	}
	return tx.Commit()
}
