// Package postgres implements the repositories on PostgreSQL through pgx.
package postgres

import (
	"strings"
)

// scanner is satisfied by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// pageBounds returns LIMIT and OFFSET for a 1-based page.
func pageBounds(page, perPage, def int) (int, int) {
	if perPage <= 0 {
		perPage = def
	}
	if page < 1 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}
