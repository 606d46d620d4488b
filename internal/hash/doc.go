// Package hash provides the CRC32-Castagnoli checksums used by container
// files.
//
// The directory of every container and each stored dataset carry a CRC32C.
// Chunked datasets carry one per chunk, accumulated over the chunk's runs:
//
//	var d hash.Digest
//	for _, run := range runs {
//		d.Add(run)
//	}
//	ok := d.Sum32() == want
package hash
