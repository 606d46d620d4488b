package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestMatchesOneShot(t *testing.T) {
	data := []byte("tuple shape and component shape")

	var d Digest
	d.Add(data[:10])
	d.Add(data[10:])

	assert.Equal(t, CRC32C(data), d.Sum32())
}

func TestCRC32CKnownValue(t *testing.T) {
	// RFC 3720 test vector: 32 bytes of zeros.
	assert.Equal(t, uint32(0x8a9136aa), CRC32C(make([]byte, 32)))
}

func TestVerify(t *testing.T) {
	data := []byte{1, 2, 3}
	require.NoError(t, Verify(data, CRC32C(data)))

	err := Verify(data, 7)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint32(7), mismatch.Want)
	assert.Equal(t, CRC32C(data), mismatch.Got)
}
