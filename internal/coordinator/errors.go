package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport a fetch failed or timed out. Refresh-path transport errors are kept in
	// the last-error slot until the next successful refresh.
	ErrTransport = errors.New("transport error")

	// ErrStaleResponse a response arrived for params that are no longer current. It is
	// discarded and never surfaced.
	ErrStaleResponse = errors.New("stale response")
)

func transportError(err error) error {
	return fmt.Errorf("%w: %w", ErrTransport, err)
}
