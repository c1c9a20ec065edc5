package pkg

// Option is a functional option that transforms a value of type T.
type Option[T any] func(T) T

// Make returns the zero value of T with each of opts applied in order.
func Make[T any](opts ...Option[T]) T {
	var v T

	return Wrap(v, opts...)
}

// Wrap returns v with each of opts applied in order.
func Wrap[T any](v T, opts ...Option[T]) T {
	for _, opt := range opts {
		if opt != nil {
			v = opt(v)
		}
	}

	return v
}

// Unused is a no-op function that can be used to
// suppress unused variable warnings for one or more variables.
func Unused(...any) {}
