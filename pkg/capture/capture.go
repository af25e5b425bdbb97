// Package capture defines the contract for camera frame sources, and the scoped
// borrow that guarantees every acquired buffer goes back to its driver.
package capture

import (
	"errors"
	"fmt"

	"github.com/cyclopcam/microcore/pkg/frame"
)

var ErrNullFrame = errors.New("Managed frame is null")

// Source is a camera driver, or anything that behaves like one.
// A buffer returned by Acquire belongs to the caller until it is passed back to Release.
type Source interface {
	Acquire() (*frame.SourceBuffer, error)
	Release(buf *frame.SourceBuffer)
}

// Borrow acquires a buffer from src, runs fn on it, and releases the buffer.
// The release happens on every path out of fn, including errors and panics.
// If the source produces no buffer, fn is not called and the error wraps ErrNullFrame.
func Borrow(src Source, fn func(buf *frame.SourceBuffer) error) error {
	buf, err := src.Acquire()
	if err != nil {
		if buf != nil {
			src.Release(buf)
		}
		return fmt.Errorf("%w: %w", ErrNullFrame, err)
	}
	if buf == nil {
		return ErrNullFrame
	}
	defer src.Release(buf)
	return fn(buf)
}
