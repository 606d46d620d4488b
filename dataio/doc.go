// Package dataio reads and writes data structures as container files.
//
// # File Format
//
// All integers are big-endian.
//
//	+--------------------+  offset 0
//	| header (32 bytes)  |  magic "NXG1", version, directory offset and
//	|                    |  length, CRC32C of the directory
//	+--------------------+  offset 32
//	| data region        |  one dataset per array, in walk order
//	+--------------------+
//	| directory (CBOR)   |  group hierarchy by name with per-array
//	|                    |  dataset descriptors
//	+--------------------+
//
// Element data is stored big-endian; bool elements take one byte holding
// 0 or 1. An array without a chunk shape is stored as one block, which
// may be compressed with LZ4 or ZSTD. An array with a chunk shape is
// stored uncompressed in row-major order over its full shape (tuple axes
// followed by component axes); each chunk is the hyperslab starting at
// index[axis]*chunk[axis] and is written and checksummed on its own.
// Chunks are written concurrently and may be read one at a time.
//
// The header is written last, so a file whose write was interrupted
// fails to open with ErrInvalidMagic or ErrIncomplete.
package dataio
