package query

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect captures the placeholder style of a database driver.
type Dialect struct {
	Driver string
	bind   int
}

var (
	SQLite   = Dialect{Driver: "sqlite3", bind: sqlx.QUESTION}
	Postgres = Dialect{Driver: "postgres", bind: sqlx.DOLLAR}
)

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) (Dialect, error) {
	bind := sqlx.BindType(driver)
	if bind == sqlx.UNKNOWN {
		return Dialect{}, fmt.Errorf("query: unsupported driver %q", driver)
	}
	return Dialect{Driver: driver, bind: bind}, nil
}

// Rebind converts `?` placeholders to the dialect's style.
func (d Dialect) Rebind(sql string) string {
	if d.bind == sqlx.QUESTION || d.bind == sqlx.UNKNOWN {
		return sql
	}
	return sqlx.Rebind(d.bind, sql)
}

func (d Dialect) String() string { return d.Driver }
