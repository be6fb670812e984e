package queryir

// Statement represents a read or write against a single table.
//
// This is a sealed interface - only types in this package implement it.
type Statement interface {
	statementNode()
}

// Predicate represents a filter condition in a Select or Update.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select reads projected columns.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order> LIMIT <limit>
//
// Columns are emitted in the given order, which is also the projection order
// a caller decodes with. OrderBy is optional; Limit 0 means unbounded.
type Select struct {
	From       string
	Columns    []string
	Filter     Predicate // nil = no filter
	OrderBy    string
	Descending bool
	Limit      int
}

func (Select) statementNode() {}

// Upsert writes Columns of the row with the given key, inserting the row
// when the key is new. Columns left out keep their stored (or default)
// values.
//
// Columns and Values are parallel slices. Key names the primary key columns;
// they must all appear in Columns.
type Upsert struct {
	Into    string
	Columns []string
	Values  []any
	Key     []string
}

func (Upsert) statementNode() {}

// Assignment sets one column in an Update.
type Assignment struct {
	Column string
	Value  any
}

// Update writes only the assigned columns of the rows matching Filter.
//
// Semantics:
//
//	UPDATE <table> SET <set> WHERE <filter>
type Update struct {
	Table  string
	Set    []Assignment
	Filter Predicate
}

func (Update) statementNode() {}

// Equals matches rows whose Field equals Value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// Less matches rows whose Field is strictly less than Value.
type Less struct {
	Field string
	Value any
}

func (Less) predicateNode() {}

// Greater matches rows whose Field is strictly greater than Value.
type Greater struct {
	Field string
	Value any
}

func (Greater) predicateNode() {}

// In matches rows whose Field equals any of Values.
//
// An empty Values list matches nothing; Validate warns about it.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// And matches rows satisfying every predicate (empty = always true).
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Schema describes which columns a wide-column engine can filter on without
// a broad scan.
type Schema struct {
	// Key lists the partition and clustering key columns.
	Key []string

	// Indexed lists columns carrying a secondary index. Only equality on an
	// indexed column is served by the index.
	Indexed []string

	// Clustering is the clustering column rows are stored in, and
	// ClusteringDescending its stored direction. Empty for engines without
	// clustered storage.
	Clustering           string
	ClusteringDescending bool
}

// StoredOrder reports whether rows are already stored in the order
// OrderBy/Descending ask for.
func (s Schema) StoredOrder(orderBy string, descending bool) bool {
	return s.Clustering != "" && s.Clustering == orderBy && s.ClusteringDescending == descending
}

func (s Schema) isKey(col string) bool {
	for _, k := range s.Key {
		if k == col {
			return true
		}
	}
	return false
}

func (s Schema) isIndexed(col string) bool {
	for _, k := range s.Indexed {
		if k == col {
			return true
		}
	}
	return false
}

// Conjuncts flattens nested And predicates into a list. A nil predicate
// yields nil.
func Conjuncts(p Predicate) []Predicate {
	switch pred := p.(type) {
	case nil:
		return nil
	case And:
		var out []Predicate
		for _, sub := range pred.Predicates {
			out = append(out, Conjuncts(sub)...)
		}
		return out
	case *And:
		return Conjuncts(*pred)
	default:
		return []Predicate{p}
	}
}
