package models

// Option is an explicit presence marker for remote results that may be
// absent. It keeps "fetched, no value" distinct from the zero value and from
// "not fetched yet", which callers track separately.
type Option[T any] struct {
	value   T
	present bool
}

// Some wraps a present value.
func Some[T any](value T) Option[T] {
	return Option[T]{value: value, present: true}
}

// None is the absent value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// Present reports whether a value is held.
func (o Option[T]) Present() bool {
	return o.present
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.present
}

// MustGet returns the value or panics if absent. For use after a Present
// check only.
func (o Option[T]) MustGet() T {
	if !o.present {
		panic("models: MustGet on absent Option")
	}
	return o.value
}

// OrZero returns the value or the zero value when absent.
func (o Option[T]) OrZero() T {
	return o.value
}
