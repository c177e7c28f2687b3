package hyptrb

// Result is the outcome of a single upstream call: either a value, or a
// degradation signal when the platform API is unreachable, slow, or
// returned something unparseable. Callers must handle the unavailable
// case explicitly; the gateway never turns degradation into an error.
type Result[T any] struct {
	value     T
	available bool
}

// Ok wraps a successfully fetched value
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, available: true}
}

// Unavailable signals that the upstream could not produce a value
func Unavailable[T any]() Result[T] {
	return Result[T]{}
}

// Get returns the value and whether the upstream produced one
func (r Result[T]) Get() (T, bool) {
	return r.value, r.available
}

// Available reports whether the upstream produced a value
func (r Result[T]) Available() bool {
	return r.available
}
