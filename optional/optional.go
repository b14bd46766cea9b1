// Package optional holds a value which may or may not be set.
package optional

// Optional is a value of type T which may be unset. Its zero value is unset.
type Optional[T any] struct {
	value T
	set   bool
}

// Of returns an Optional set to v.
func Of[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Set stores v and marks the optional as set.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Get returns the stored value. It is the zero value of T when unset.
func (o Optional[T]) Get() T {
	return o.value
}

// HasValue reports whether a value was set.
func (o Optional[T]) HasValue() bool {
	return o.set
}
