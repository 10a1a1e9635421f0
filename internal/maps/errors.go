// Public domain.

package maps

import (
	"errors"
	"fmt"
)

// ErrNoHDU is returned when a named block is not in a file.
var ErrNoHDU = errors.New("no such HDU")

// ErrReadHDU represents an error reading a named block.
type ErrReadHDU struct {
	Name string
	Err  error
}

func (e *ErrReadHDU) Error() string {
	return fmt.Sprintf("error reading HDU %q: %v", e.Name, e.Err)
}

func (e *ErrReadHDU) Unwrap() error { return e.Err }

// ErrWriteHDU represents an error writing a named block.
type ErrWriteHDU struct {
	Name string
	Err  error
}

func (e *ErrWriteHDU) Error() string {
	return fmt.Sprintf("error writing HDU %q: %v", e.Name, e.Err)
}

func (e *ErrWriteHDU) Unwrap() error { return e.Err }
