package queryir

import "fmt"

// ValidationResult contains the compatibility analysis of a statement.
type ValidationResult struct {
	// NeedsFiltering indicates a predicate the wide-column engine cannot
	// serve from its key or indexes. The CQL compiler appends ALLOW
	// FILTERING for such statements.
	NeedsFiltering bool

	// Warnings lists each problem found, in traversal order.
	Warnings []string
}

// Validate checks a statement against the filtering limits of schema.
//
// Rules:
//  1. Predicates on key columns are always served.
//  2. Equals on an indexed column is served by the index.
//  3. Any other predicate on a non-key column needs filtering.
//  4. An empty In list matches nothing and is reported.
//  5. Statements must name a table; Select and Update need columns.
//
// Validate is a pure function with no side effects.
func Validate(stmt Statement, schema Schema) ValidationResult {
	v := &validator{schema: schema, warnings: []string{}}
	v.validateStatement(stmt)

	return ValidationResult{
		NeedsFiltering: v.needsFiltering,
		Warnings:       v.warnings,
	}
}

type validator struct {
	schema         Schema
	needsFiltering bool
	warnings       []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateStatement(s Statement) {
	switch stmt := s.(type) {
	case nil:
		v.addWarning("nil statement")
	case Select:
		v.validateSelect(stmt)
	case *Select:
		v.validateSelect(*stmt)
	case Upsert:
		v.validateUpsert(stmt)
	case *Upsert:
		v.validateUpsert(*stmt)
	case Update:
		v.validateUpdate(stmt)
	case *Update:
		v.validateUpdate(*stmt)
	default:
		v.addWarning("unknown statement type: %T", s)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addWarning("select without table")
	}
	if len(sel.Columns) == 0 {
		v.addWarning("select without columns")
	}
	if sel.Limit < 0 {
		v.addWarning("negative limit %d", sel.Limit)
	}
	v.validatePredicate(sel.Filter)
}

func (v *validator) validateUpsert(up Upsert) {
	if up.Into == "" {
		v.addWarning("upsert without table")
	}
	if len(up.Columns) != len(up.Values) {
		v.addWarning("upsert has %d columns but %d values", len(up.Columns), len(up.Values))
	}
	for _, k := range up.Key {
		if !contains(up.Columns, k) {
			v.addWarning("upsert key column '%s' has no value", k)
		}
	}
}

func (v *validator) validateUpdate(up Update) {
	if up.Table == "" {
		v.addWarning("update without table")
	}
	if len(up.Set) == 0 {
		v.addWarning("update without assignments")
	}
	for _, a := range up.Set {
		if v.schema.isKey(a.Column) {
			v.addWarning("update assigns key column '%s'", a.Column)
		}
	}
	if up.Filter == nil {
		v.addWarning("update without filter")
	}
	v.validatePredicate(up.Filter)
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.checkColumn(pred.Field, true)
	case *Equals:
		v.checkColumn(pred.Field, true)
	case Less:
		v.checkColumn(pred.Field, false)
	case *Less:
		v.checkColumn(pred.Field, false)
	case Greater:
		v.checkColumn(pred.Field, false)
	case *Greater:
		v.checkColumn(pred.Field, false)
	case In:
		v.validateIn(pred)
	case *In:
		v.validateIn(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addWarning("unknown predicate type: %T", p)
	}
}

func (v *validator) validateIn(in In) {
	if len(in.Values) == 0 {
		v.addWarning("field '%s' compared to an empty IN list - matches nothing", in.Field)
	}
	v.checkColumn(in.Field, false)
}

// checkColumn flags a predicate the schema cannot serve. equality is true
// for Equals, the only comparison a secondary index serves.
func (v *validator) checkColumn(col string, equality bool) {
	if v.schema.isKey(col) {
		return
	}
	if equality && v.schema.isIndexed(col) {
		return
	}
	v.needsFiltering = true
	v.addWarning("field '%s' is not a key column - wide-column engines need a filtering scan", col)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
