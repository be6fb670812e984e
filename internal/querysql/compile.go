package querysql

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/roach88/logbase/internal/queryir"
)

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Compiler compiles statements to parameterized query text.
//
// CRITICAL: All values are parameterized (never interpolated).
type Compiler struct {
	Dialect Dialect

	// Timeout is attached to CQL reads as USING TIMEOUT. Zero omits it.
	Timeout time.Duration

	// Schema decides when CQL reads need ALLOW FILTERING.
	Schema queryir.Schema
}

// Compile converts a statement to (query, params, error).
func (c Compiler) Compile(stmt queryir.Statement) (string, []any, error) {
	switch s := stmt.(type) {
	case nil:
		return "", nil, fmt.Errorf("cannot compile nil statement")
	case queryir.Select:
		return c.compileSelect(s)
	case *queryir.Select:
		return c.compileSelect(*s)
	case queryir.Upsert:
		return c.compileUpsert(s)
	case *queryir.Upsert:
		return c.compileUpsert(*s)
	case queryir.Update:
		return c.compileUpdate(s)
	case *queryir.Update:
		return c.compileUpdate(*s)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

func (c Compiler) compileSelect(q queryir.Select) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("select from %s: no columns", q.From)
	}
	if err := checkIdents(q.From); err != nil {
		return "", nil, err
	}
	if err := checkIdents(q.Columns...); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var params []any

	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.Columns, ", "), q.From)

	if q.Filter != nil {
		where, whereParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
		params = append(params, whereParams...)
	}

	// CQL rejects ORDER BY on secondary-index reads; the clustering order
	// already gives the requested order.
	if q.OrderBy != "" && !(c.Dialect == CQL && c.Schema.StoredOrder(q.OrderBy, q.Descending)) {
		if err := checkIdents(q.OrderBy); err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY %s %s", q.OrderBy, dir)
	}

	if q.Limit < 0 {
		return "", nil, fmt.Errorf("select from %s: negative limit %d", q.From, q.Limit)
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
	}

	if c.Dialect == CQL {
		if queryir.Validate(q, c.Schema).NeedsFiltering {
			b.WriteString(" ALLOW FILTERING")
		}
		if c.Timeout > 0 {
			fmt.Fprintf(&b, " USING TIMEOUT %dms", c.Timeout.Milliseconds())
		}
	}

	return b.String(), params, nil
}

func (c Compiler) compileUpsert(q queryir.Upsert) (string, []any, error) {
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("upsert into %s: no columns", q.Into)
	}
	if len(q.Columns) != len(q.Values) {
		return "", nil, fmt.Errorf("upsert into %s: %d columns but %d values", q.Into, len(q.Columns), len(q.Values))
	}
	if err := checkIdents(q.Into); err != nil {
		return "", nil, err
	}
	if err := checkIdents(q.Columns...); err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		q.Into,
		strings.Join(q.Columns, ", "),
		placeholders(len(q.Columns)))

	// CQL INSERT already replaces an existing row.
	if c.Dialect == SQLite && len(q.Key) > 0 {
		if err := checkIdents(q.Key...); err != nil {
			return "", nil, err
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO ", strings.Join(q.Key, ", "))

		var sets []string
		for _, col := range q.Columns {
			if !contains(q.Key, col) {
				sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
			}
		}
		if len(sets) == 0 {
			b.WriteString("NOTHING")
		} else {
			b.WriteString("UPDATE SET ")
			b.WriteString(strings.Join(sets, ", "))
		}
	}

	params := make([]any, len(q.Values))
	copy(params, q.Values)
	return b.String(), params, nil
}

func (c Compiler) compileUpdate(q queryir.Update) (string, []any, error) {
	if len(q.Set) == 0 {
		return "", nil, fmt.Errorf("update %s: no assignments", q.Table)
	}
	if q.Filter == nil {
		return "", nil, fmt.Errorf("update %s: missing filter", q.Table)
	}
	if err := checkIdents(q.Table); err != nil {
		return "", nil, err
	}

	sets := make([]string, len(q.Set))
	params := make([]any, 0, len(q.Set))
	for i, a := range q.Set {
		if err := checkIdents(a.Column); err != nil {
			return "", nil, err
		}
		sets[i] = a.Column + " = ?"
		params = append(params, a.Value)
	}

	where, whereParams, err := c.compilePredicate(q.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	params = append(params, whereParams...)

	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", q.Table, strings.Join(sets, ", "), where), params, nil
}

// compilePredicate compiles a predicate to a WHERE fragment.
// CRITICAL: Values are NEVER interpolated - always use ? placeholders.
func (c Compiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return compare(pred.Field, "=", pred.Value)
	case *queryir.Equals:
		return compare(pred.Field, "=", pred.Value)
	case queryir.Less:
		return compare(pred.Field, "<", pred.Value)
	case *queryir.Less:
		return compare(pred.Field, "<", pred.Value)
	case queryir.Greater:
		return compare(pred.Field, ">", pred.Value)
	case *queryir.Greater:
		return compare(pred.Field, ">", pred.Value)
	case queryir.In:
		return compileIn(pred)
	case *queryir.In:
		return compileIn(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c Compiler) compileAnd(and queryir.And) (string, []any, error) {
	conj := queryir.Conjuncts(and)
	if len(conj) == 0 {
		return "", nil, fmt.Errorf("empty conjunction")
	}

	parts := make([]string, 0, len(conj))
	var params []any
	for _, pred := range conj {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

func compare(field, op string, value any) (string, []any, error) {
	if err := checkIdents(field); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", field, op), []any{value}, nil
}

func compileIn(in queryir.In) (string, []any, error) {
	if err := checkIdents(in.Field); err != nil {
		return "", nil, err
	}
	if len(in.Values) == 0 {
		return "", nil, fmt.Errorf("field %s: empty IN list", in.Field)
	}
	params := make([]any, len(in.Values))
	copy(params, in.Values)
	return fmt.Sprintf("%s IN (%s)", in.Field, placeholders(len(in.Values))), params, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func checkIdents(names ...string) error {
	for _, name := range names {
		if !identPattern.MatchString(name) {
			return fmt.Errorf("invalid identifier %q", name)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
