package app

import "errors"

// ErrNextCalledTwice is returned when a handler invokes its next continuation
// more than once for the same request.
var ErrNextCalledTwice = errors.New("next() called multiple times")

// Next hands control to the rest of the chain and returns once it has finished.
type Next func() error

// Handler processes a request. It may produce a response itself or call next
// to let the rest of the chain run, then resume afterwards.
//
// Code before next() runs on the way in, code after it on the way out.
type Handler func(c *Context, next Next) error

// Composable is anything exposing an ordered list of handlers, such as *App.
type Composable interface {
	Middleware() []Handler
}

// Compose collapses handlers into a single Handler that runs them in order.
// Compose(A, B, C) runs A → B → C → next, with each step free to stop early.
func Compose(handlers ...Handler) Handler {
	stack := make([]Handler, len(handlers))
	copy(stack, handlers)

	return func(c *Context, next Next) error {
		index := -1

		var dispatch func(i int) error
		dispatch = func(i int) error {
			if i <= index {
				return ErrNextCalledTwice
			}
			index = i

			if i == len(stack) {
				if next == nil {
					return nil
				}
				return next()
			}

			return stack[i](c, func() error {
				return dispatch(i + 1)
			})
		}

		return dispatch(0)
	}
}
