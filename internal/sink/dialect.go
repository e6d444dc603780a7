package sink

import (
	"fmt"
	"strings"
)

// Dialect covers the SQL differences between the supported drivers.
type Dialect interface {
	Placeholder(n int) string
	Quote(ident string) string
	TextType() string
	RealType() string
}

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(_ int) string { return "?" }
func (sqliteDialect) Quote(ident string) string { return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"` }
func (sqliteDialect) TextType() string { return "TEXT" }
func (sqliteDialect) RealType() string { return "REAL" }

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) Quote(ident string) string { return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"` }
func (postgresDialect) TextType() string { return "TEXT" }
func (postgresDialect) RealType() string { return "DOUBLE PRECISION" }

type mysqlDialect struct{}

func (mysqlDialect) Placeholder(_ int) string { return "?" }
func (mysqlDialect) Quote(ident string) string { return "`" + strings.ReplaceAll(ident, "`", "``") + "`" }
func (mysqlDialect) TextType() string { return "VARCHAR(255)" }
func (mysqlDialect) RealType() string { return "DOUBLE" }

// dialectFor maps a configured driver name to its database/sql driver and dialect.
func dialectFor(driver string) (string, Dialect, error) {
	switch driver {
	case "", "sqlite":
		return "sqlite", sqliteDialect{}, nil
	case "postgres":
		return "pgx", postgresDialect{}, nil
	case "mysql":
		return "mysql", mysqlDialect{}, nil
	}
	return "", nil, fmt.Errorf("unsupported sql driver: %s", driver)
}
