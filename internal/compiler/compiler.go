// Package compiler translates validated, canonical Horn-clause formulas
// into SQL text: a rule body into a SELECT over its dependencies (used
// by the Materializer to build a predicate's view), and a formula query
// into a SELECT over a single predicate's view (used by the Query
// Coordinator). There is no library in the wider example pack that
// compiles Datalog rule bodies to SQL joins, so the join-emission
// algorithm below is original code, grounded directly on spec.md's
// rule-to-SQL compilation algorithm; the surrounding string-building
// style (raw SQL assembled with strings.Builder/fmt.Sprintf) follows
// the teacher's schema_def.go convention of hand-built SQL text.
package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chkn/rbdb/internal/logic"
	"github.com/chkn/rbdb/internal/rbdberr"
)

// ColumnsOf resolves a predicate's declared column names, in position
// order. The Materializer backs this with a `_predicate.column_names`
// lookup.
type ColumnsOf func(predicateName string) ([]string, error)

// SourceRef resolves the FROM-clause source expression for a body
// predicate name: ordinarily the predicate's quoted view name, but
// overridden by the Materializer for a self-referencing rule body so
// the compiled SELECT reads from the enclosing WITH RECURSIVE CTE
// instead of a view that would not yet exist mid-materialization.
type SourceRef func(predicateName string) string

// DefaultSourceRef resolves a predicate name to its ordinary
// session-scoped view, which is named after the predicate itself —
// spec.md's "the predicate appears to the client as a table" means
// exactly that, with no suffix — so a client's `SELECT * FROM human`
// reaches the view directly.
func DefaultSourceRef(predicateName string) string {
	return quoteIdent(viewName(predicateName))
}

func viewName(predicateName string) string {
	return predicateName
}

type binding struct {
	alias  string
	column string
}

// CompileRule compiles a validated, canonical rule (non-empty body)
// into a single SELECT statement per spec.md §4.4.
func CompileRule(rule logic.Formula, columnsOf ColumnsOf, sourceRef SourceRef) (string, error) {
	if len(rule.Body) == 0 {
		return "", rbdberr.UnsupportedQuery("CompileRule requires a non-empty body")
	}
	if sourceRef == nil {
		sourceRef = DefaultSourceRef
	}

	aliases := make([]string, len(rule.Body))
	occurrences := map[string]int{}
	for i, p := range rule.Body {
		occurrences[p.Name]++
		if occurrences[p.Name] == 1 {
			aliases[i] = p.Name
		} else {
			aliases[i] = fmt.Sprintf("%s%d", p.Name, occurrences[p.Name])
		}
	}

	bindings := map[uint8]binding{}
	conditions := make([][]string, len(rule.Body)) // conditions[i] attaches to source i, or to WHERE when i==0

	for i, p := range rule.Body {
		cols, err := columnsOf(p.Name)
		if err != nil {
			return "", err
		}
		if len(cols) < len(p.Args) {
			return "", fmt.Errorf("compiler: predicate %q declares %d columns, body uses %d arguments", p.Name, len(cols), len(p.Args))
		}
		for pos, arg := range p.Args {
			col := cols[pos]
			if idx, ok := arg.Index(); ok {
				if first, seen := bindings[idx]; seen {
					cond := fmt.Sprintf("%s.%s = %s.%s", quoteIdent(aliases[i]), quoteIdent(col), quoteIdent(first.alias), quoteIdent(first.column))
					conditions[i] = append(conditions[i], cond)
				} else {
					bindings[idx] = binding{alias: aliases[i], column: col}
				}
				continue
			}
			lit, err := literalSQL(arg)
			if err != nil {
				return "", err
			}
			cond := fmt.Sprintf("%s.%s = %s", quoteIdent(aliases[i]), quoteIdent(col), lit)
			conditions[i] = append(conditions[i], cond)
		}
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	headCols, err := columnsOf(rule.Head.Name)
	if err != nil {
		return "", err
	}
	for i, arg := range rule.Head.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		var expr string
		if idx, ok := arg.Index(); ok {
			bind, seen := bindings[idx]
			if !seen {
				return "", rbdberr.UnsafeVariables([]uint8{idx})
			}
			expr = fmt.Sprintf("%s.%s", quoteIdent(bind.alias), quoteIdent(bind.column))
		} else {
			expr, err = literalSQL(arg)
			if err != nil {
				return "", err
			}
		}
		headCol := headColumnName(headCols, i)
		b.WriteString(fmt.Sprintf("%s AS %s", expr, quoteIdent(headCol)))
	}

	b.WriteString(" FROM ")
	b.WriteString(fmt.Sprintf("%s AS %s", sourceRef(rule.Body[0].Name), quoteIdent(aliases[0])))
	for i := 1; i < len(rule.Body); i++ {
		b.WriteString(fmt.Sprintf(" JOIN %s AS %s ON ", sourceRef(rule.Body[i].Name), quoteIdent(aliases[i])))
		if len(conditions[i]) == 0 {
			b.WriteString("1=1")
		} else {
			b.WriteString(strings.Join(conditions[i], " AND "))
		}
	}
	if len(conditions[0]) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conditions[0], " AND "))
	}
	return b.String(), nil
}

func headColumnName(cols []string, pos int) string {
	if pos < len(cols) {
		return cols[pos]
	}
	return fmt.Sprintf("col%d", pos)
}

// CompileQuery compiles a formula query (empty body) into a SELECT over
// the head predicate's view. It returns the SQL text and whether the
// query is ground (all-constant arguments), in which case the sole
// projected column is named "sat".
func CompileQuery(formula logic.Formula, columnsOf ColumnsOf) (string, bool, error) {
	if len(formula.Body) != 0 {
		return "", false, rbdberr.UnsupportedQuery("query formula must have an empty body")
	}
	cols, err := columnsOf(formula.Head.Name)
	if err != nil {
		return "", false, err
	}
	if len(cols) < len(formula.Head.Args) {
		return "", false, fmt.Errorf("compiler: predicate %q declares %d columns, query uses %d arguments", formula.Head.Name, len(cols), len(formula.Head.Args))
	}

	source := DefaultSourceRef(formula.Head.Name)

	var projections []string
	var whereClauses []string
	ground := true
	for i, arg := range formula.Head.Args {
		col := cols[i]
		if idx, ok := arg.Index(); ok {
			ground = false
			name := logic.DisplayName(idx)
			projections = append(projections, fmt.Sprintf("%s AS %s", quoteIdent(col), quoteIdent(name)))
			continue
		}
		lit, err := literalSQL(arg)
		if err != nil {
			return "", false, err
		}
		whereClauses = append(whereClauses, fmt.Sprintf("%s = %s", quoteIdent(col), lit))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if ground {
		b.WriteString("1 AS sat")
	} else {
		b.WriteString(strings.Join(projections, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(source)
	if len(whereClauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(whereClauses, " AND "))
	}
	if ground {
		b.WriteString(" LIMIT 1")
	}
	return b.String(), ground, nil
}

// literalSQL renders a constant term as SQL literal text, embedded
// directly (not parameter-bound) per spec.md §4.4's "emit an equality
// predicate alias.col = <literal>".
func literalSQL(t logic.Term) (string, error) {
	switch t.Kind() {
	case logic.KindString:
		s, _ := t.StringValue()
		return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
	case logic.KindNumber:
		n, _ := t.NumberValue()
		return strconv.FormatFloat(n, 'g', -1, 64), nil
	case logic.KindBoolean:
		b, _ := t.BoolValue()
		if b {
			return "1", nil
		}
		return "0", nil
	default:
		return "", fmt.Errorf("compiler: term of kind %v is not a constant", t.Kind())
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
