package checkout

import "errors"

var (
	// ErrSessionClosed is returned to a caller whose session was cancelled
	// while its gateway call was outstanding. The late result is dropped.
	ErrSessionClosed = errors.New("checkout session was cancelled")
	// ErrResultMismatch is returned for a widget result that names another gateway order.
	ErrResultMismatch = errors.New("payment result does not belong to this checkout")
)
