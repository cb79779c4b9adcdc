package store

import (
	"strconv"
	"strings"
)

// rebind rewrites ? placeholders into the dialect's placeholder syntax.
// Queries are written with ? which sqlite understands, postgres wants $1, $2...
// A ? inside a quoted string literal is not a placeholder and is left alone.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres || !strings.Contains(query, "?") {
		return query
	}

	var (
		builder strings.Builder
		n       int
		quoted  bool
	)
	builder.Grow(len(query) + 8)

	for _, r := range query {
		switch {
		case r == '\'':
			quoted = !quoted
		case r == '?' && !quoted:
			n += 1
			builder.WriteByte('$')
			builder.WriteString(strconv.Itoa(n))
			continue
		}
		builder.WriteRune(r)
	}

	return builder.String()
}
