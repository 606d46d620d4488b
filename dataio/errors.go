package dataio

import (
	"fmt"

	"github.com/hupe1980/nxgraph/result"
)

var (
	// ErrInvalidMagic is returned when a file is not a container.
	ErrInvalidMagic = result.Sentinel(result.KindIO, "dataio: invalid magic")
	// ErrUnsupportedVersion is returned for containers of a newer format.
	ErrUnsupportedVersion = result.Sentinel(result.KindIO, "dataio: unsupported version")
	// ErrChecksumMismatch is returned when stored data fails its CRC32C check.
	ErrChecksumMismatch = result.Sentinel(result.KindIO, "dataio: checksum mismatch")
	// ErrIncomplete is returned for truncated files or datasets with
	// chunks that were never written.
	ErrIncomplete = result.Sentinel(result.KindIO, "dataio: incomplete container")
	// ErrCorrupt is returned when the directory is inconsistent.
	ErrCorrupt = result.Sentinel(result.KindIO, "dataio: corrupt directory")
	// ErrTooDeep is returned when writing an object path longer than
	// MaxDepth.
	ErrTooDeep = result.Sentinel(result.KindValidation, "dataio: hierarchy too deep")
	// ErrNotChunked is returned for chunk reads of unchunked datasets.
	ErrNotChunked = result.Sentinel(result.KindValidation, "dataio: dataset is not chunked")
)

// IOError reports a failed transfer of one dataset or chunk.
type IOError struct {
	// Op is "read" or "write".
	Op string
	// Path is the dataset path inside the container.
	Path string
	// Chunk is the chunk index, nil for whole-dataset transfers.
	Chunk []int
	Err   error
}

func (e *IOError) Error() string {
	if e.Chunk != nil {
		return fmt.Sprintf("dataio: %s %s chunk %v: %v", e.Op, e.Path, e.Chunk, e.Err)
	}
	return fmt.Sprintf("dataio: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrorKind classifies IOError for result.KindOf.
func (e *IOError) ErrorKind() result.Kind { return result.KindIO }
