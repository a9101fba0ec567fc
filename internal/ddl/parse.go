// Package ddl intercepts `CREATE TABLE` statements before they reach
// the SQL engine's normal execution path and turns them into a
// predicate declaration in the Rule Store instead (spec.md §4.5). The
// comma-split-at-depth-zero scanner below is original code — no parser
// in the wider example pack is embeddable as a dependency for this
// single fixed grammar, and pulling in a full SQL front end would be
// out of proportion to the grammar actually needed (see DESIGN.md).
package ddl

import (
	"strings"

	"github.com/chkn/rbdb/internal/rbdberr"
)

// ParsedCreateTable is the result of successfully recognizing and
// parsing a `CREATE TABLE` statement.
type ParsedCreateTable struct {
	IfNotExists bool
	TableName   string
	Columns     []string
}

// TryParse recognizes whether sql is a `CREATE TABLE` statement and, if
// so, parses it. ok is false (with a nil error) when sql is not a
// `CREATE TABLE` statement at all, in which case the caller must let it
// proceed to the SQL engine unchanged.
func TryParse(sql string) (parsed *ParsedCreateTable, ok bool, err error) {
	trimmed := strings.TrimSpace(sql)
	rest, matched := stripKeyword(trimmed, "CREATE")
	if !matched {
		return nil, false, nil
	}
	rest, matched = stripKeyword(rest, "TABLE")
	if !matched {
		return nil, false, nil
	}

	ifNotExists := false
	if r, m := stripKeyword(rest, "IF"); m {
		if r2, m2 := stripKeyword(r, "NOT"); m2 {
			if r3, m3 := stripKeyword(r2, "EXISTS"); m3 {
				ifNotExists = true
				rest = r3
			}
		}
	}

	name, rest, err := parseName(rest)
	if err != nil {
		return nil, true, err
	}

	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, "(") {
		return nil, true, errNoColumnList
	}
	body, err := extractParenBody(rest)
	if err != nil {
		return nil, true, err
	}

	elements := splitAtDepthZero(body)
	var columns []string
	for _, el := range elements {
		el = strings.TrimSpace(el)
		if el == "" {
			continue
		}
		if isTableConstraint(el) {
			continue
		}
		col, err := firstIdentifier(el)
		if err != nil {
			return nil, true, err
		}
		columns = append(columns, col)
	}

	return &ParsedCreateTable{IfNotExists: ifNotExists, TableName: name, Columns: columns}, true, nil
}

var errNoColumnList = rbdberr.UnsupportedQuery("CREATE TABLE statement has no column list")

// stripKeyword consumes leading whitespace, then keyword (case
// insensitive, word-boundary terminated), returning the remainder and
// whether it matched.
func stripKeyword(s, keyword string) (string, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	if len(s) < len(keyword) {
		return s, false
	}
	if !strings.EqualFold(s[:len(keyword)], keyword) {
		return s, false
	}
	afterIdx := len(keyword)
	if afterIdx < len(s) && isIdentChar(rune(s[afterIdx])) {
		return s, false
	}
	return s[afterIdx:], true
}

func isIdentChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// parseName parses the table name, stripping quote/bracket wrappers,
// and returns the remainder of the statement.
func parseName(s string) (string, string, error) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" {
		return "", s, errNoColumnList
	}
	switch s[0] {
	case '"', '`':
		return parseQuoted(s, s[0])
	case '[':
		return parseBracketed(s)
	default:
		i := 0
		for i < len(s) && !isSpace(rune(s[i])) && s[i] != '(' {
			i++
		}
		return s[:i], s[i:], nil
	}
}

func parseQuoted(s string, quote byte) (string, string, error) {
	i := 1
	var b strings.Builder
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), s[i+1:], nil
		}
		b.WriteByte(s[i])
		i++
	}
	return "", "", errNoColumnList
}

func parseBracketed(s string) (string, string, error) {
	i := 1
	var b strings.Builder
	for i < len(s) {
		if s[i] == ']' {
			return b.String(), s[i+1:], nil
		}
		b.WriteByte(s[i])
		i++
	}
	return "", "", errNoColumnList
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}

// extractParenBody returns the text between the outermost matching
// parentheses that s (trimmed) starts with.
func extractParenBody(s string) (string, error) {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[1:i], nil
			}
		}
	}
	return "", errNoColumnList
}

// splitAtDepthZero splits s on commas that are not nested inside
// parentheses or a quoted string.
func splitAtDepthZero(s string) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

var tableConstraintKeywords = []string{"UNIQUE", "PRIMARY", "FOREIGN", "CHECK", "CONSTRAINT"}

func isTableConstraint(element string) bool {
	trimmed := strings.TrimSpace(element)
	for _, kw := range tableConstraintKeywords {
		if _, matched := stripKeyword(trimmed, kw); matched {
			return true
		}
	}
	return false
}

// firstIdentifier returns the first whitespace-delimited token of a
// column-definition element as the column name, rejecting quoted or
// bracketed names per spec.md's QuotedColumnNotSupported.
func firstIdentifier(element string) (string, error) {
	trimmed := strings.TrimSpace(element)
	if trimmed == "" {
		return "", errNoColumnList
	}
	switch trimmed[0] {
	case '"', '`':
		inner, _, _ := parseQuoted(trimmed, trimmed[0])
		return "", rbdberr.QuotedColumnNotSupported(inner)
	case '[':
		inner, _, _ := parseBracketed(trimmed)
		return "", rbdberr.QuotedColumnNotSupported(inner)
	}
	end := strings.IndexFunc(trimmed, isSpace)
	if end < 0 {
		return trimmed, nil
	}
	return trimmed[:end], nil
}
