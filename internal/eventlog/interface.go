// Package eventlog provides generic append-only sinks.
package eventlog

import (
	"context"
	"errors"
)

// Appender accepts items in order. Implementations need not be safe for
// concurrent use unless documented.
type Appender[T any] interface {
	Append(ctx context.Context, item T) error
}

// AppenderFunc adapts a function to Appender.
type AppenderFunc[T any] func(ctx context.Context, item T) error

func (f AppenderFunc[T]) Append(ctx context.Context, item T) error { return f(ctx, item) }

// Tee appends every item to each appender in order. All appenders are
// attempted; their errors are joined.
func Tee[T any](appenders ...Appender[T]) Appender[T] {
	return AppenderFunc[T](func(ctx context.Context, item T) error {
		var errs []error
		for _, a := range appenders {
			if err := a.Append(ctx, item); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
