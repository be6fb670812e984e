package entry

// Optional carries a field that a read may or may not have materialized.
//
// Valid is false when the field was not projected. A projected field holding
// its zero value has Valid set and a zero Value.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a valid Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Get returns the value and whether it was materialized.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// IsZero reports whether the field is absent. It lets encoding/json drop
// unprojected fields under the omitzero tag option.
func (o Optional[T]) IsZero() bool {
	return !o.Valid
}
