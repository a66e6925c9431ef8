package dispatch

import "errors"

// ErrRetryExhausted is returned by Send when every retry attempt failed. It
// wraps the last underlying error, so callers can use errors.Is/errors.As to
// inspect either this sentinel or the root cause.
var ErrRetryExhausted = errors.New("dispatch: all retry attempts exhausted")
