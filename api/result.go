package api

// Result is the outcome of a single dispatch attempt: a success value or a
// classified error. Completions receive it at most once per attempt.
type Result[T any] struct {
	Value T
	Err   *Error
}

// Success wraps a value in a successful result.
func Success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Failure wraps a classified error in a failed result.
func Failure[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

// Ok reports whether the result carries a success value.
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Completion receives the outcome of a dispatch. For local dispatches with
// multiple capable modules it may be invoked once per module.
type Completion[T any] func(Result[T])
