package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyIndex is returned when searching an index built from zero chunks.
	ErrEmptyIndex = errors.New("semantic index is empty")
	// ErrInvalidK is returned by Search for k < 1.
	ErrInvalidK   = errors.New("k must be at least 1")
	// ErrBlankChunk is returned by New for a chunk with only whitespace text.
	ErrBlankChunk = errors.New("chunk text is blank")
)

// DimensionMismatchError reports a vector whose length disagrees with the index.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d, got %d", e.Want, e.Got)
}
