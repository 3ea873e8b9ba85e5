// Package sqlgen renders fee schedule records as a batch INSERT script.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/rotisserie/eris"
)

// Dialect captures the quoting and schema rules of a target database.
type Dialect interface {
	// Name is the dialect's configuration name.
	Name() string
	// Preamble returns the static schema statements written before the insert.
	Preamble(table string) string
	// Literal quotes s as a string literal.
	Literal(s string) string
	// JSON renders a JSON document as a column value.
	JSON(doc string) string
}

// Dialect names accepted by DialectByName.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case DialectPostgres, "postgresql":
		return Postgres{}, nil
	case DialectSQLite, "sqlite3":
		return SQLite{}, nil
	default:
		return nil, eris.Errorf("sqlgen: unknown dialect %q", name)
	}
}

// Postgres targets PostgreSQL. Tiers are stored as jsonb.
type Postgres struct{}

func (Postgres) Name() string { return DialectPostgres }

// Preamble relaxes the legacy columns that older rows populated.
func (Postgres) Preamble(table string) string {
	t := sanitizeTable(table)
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;\nALTER TABLE %s ALTER COLUMN %s DROP NOT NULL;\n",
		t, ident("schedule_name"), t, ident("schedule_status"))
}

// Literal quotes s, switching to the E'' form when s contains backslashes.
func (Postgres) Literal(s string) string {
	return strings.TrimPrefix(pq.QuoteLiteral(s), " ")
}

func (p Postgres) JSON(doc string) string {
	return p.Literal(doc) + "::jsonb"
}

// SQLite targets SQLite. Tiers are stored as JSON text.
type SQLite struct{}

func (SQLite) Name() string { return DialectSQLite }

// Preamble creates the table when it does not exist; SQLite cannot drop
// NOT NULL constraints in place.
func (SQLite) Preamble(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  id INTEGER PRIMARY KEY,
  firm_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  status TEXT NOT NULL,
  structure_type TEXT NOT NULL,
  tiers TEXT,
  flat_rate NUMERIC,
  flat_fee_per_quarter NUMERIC,
  has_minimum_fee BOOLEAN NOT NULL DEFAULT FALSE,
  minimum_fee_per_year NUMERIC,
  description TEXT NOT NULL DEFAULT '',
  is_direct_bill BOOLEAN NOT NULL DEFAULT FALSE,
  schedule_name TEXT,
  schedule_status TEXT,
  UNIQUE (firm_id, code)
);
`, sanitizeTable(table))
}

// Literal doubles single quotes; backslashes carry no meaning in SQLite.
func (SQLite) Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (s SQLite) JSON(doc string) string {
	return s.Literal(doc)
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// sanitizeTable handles schema-qualified table names like "billing.fee_schedules".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = ident(c)
	}
	return strings.Join(quoted, ", ")
}
