package hash

import (
	"fmt"
	"hash/crc32"
)

var table = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, table)
}

// Digest accumulates a checksum over the byte runs of one chunk. The zero
// value is ready to use.
type Digest uint32

// Add extends the digest with p.
func (d *Digest) Add(p []byte) {
	*d = Digest(crc32.Update(uint32(*d), table, p))
}

// Sum32 returns the checksum of everything added so far.
func (d Digest) Sum32() uint32 { return uint32(d) }

// MismatchError reports data whose checksum differs from the recorded one.
type MismatchError struct {
	Got, Want uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("crc32c %08x, want %08x", e.Got, e.Want)
}

// Verify returns a *MismatchError when data does not hash to want.
func Verify(data []byte, want uint32) error {
	if got := CRC32C(data); got != want {
		return &MismatchError{Got: got, Want: want}
	}
	return nil
}
