package knowledge

import (
	"errors"
	"fmt"
)

var (
	// ErrIngestion is the parent of every non-fatal write-path failure reported to the caller.
	ErrIngestion = errors.New("ingestion failed")

	// ErrEmptyContent indicates a document with no usable text.
	ErrEmptyContent = fmt.Errorf("%w: empty content", ErrIngestion)

	// ErrUnsupportedFormat indicates a file type the ingester cannot read.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported input format", ErrIngestion)

	// ErrIndexUnavailable indicates the persisted vector store cannot be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates an embedding whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
