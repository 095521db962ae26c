package repository

import (
	"strings"

	"github.com/jmoiron/sqlx"
)

// predicateSet accumulates WHERE fragments written with `?` placeholders
// together with their bound values, in order.
type predicateSet struct {
	clauses []string
	args    []interface{}
}

func (p *predicateSet) add(clause string, args ...interface{}) {
	p.clauses = append(p.clauses, clause)
	p.args = append(p.args, args...)
}

// where renders the accumulated predicates joined with AND, or "" when empty.
func (p *predicateSet) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// containsPattern lowercases term and wraps it for a substring LIKE match,
// escaping the LIKE wildcards it contains.
func containsPattern(term string) string {
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + escaper.Replace(strings.ToLower(term)) + "%"
}

// bind expands slice arguments for IN lists and rewrites placeholders into
// the bind style of db's driver.
func bind(db *sqlx.DB, query string, args []interface{}) (string, []interface{}, error) {
	expanded, args, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(expanded), args, nil
}
