package dataio

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/hupe1980/nxgraph/internal/hash"
)

const (
	// Version is the container format version written.
	Version uint16 = 1

	headerSize = 32

	// MaxDepth is the deepest object path a container can hold.
	MaxDepth = 1024

	// Every hierarchy level nests a node map and its children array; the
	// directory, a dataset map and its shape arrays add a few more.
	maxNestedLevels = 2*MaxDepth + 8
	maxElements     = 1<<31 - 1
)

var magic = [4]byte{'N', 'X', 'G', '1'}

type header struct {
	Version   uint16
	Flags     uint16
	DirOffset uint64
	DirLength uint64
	DirCRC    uint32
}

func (h header) encode() []byte {
	b := make([]byte, headerSize)
	copy(b[0:4], magic[:])
	binary.BigEndian.PutUint16(b[4:6], h.Version)
	binary.BigEndian.PutUint16(b[6:8], h.Flags)
	binary.BigEndian.PutUint64(b[8:16], h.DirOffset)
	binary.BigEndian.PutUint64(b[16:24], h.DirLength)
	binary.BigEndian.PutUint32(b[24:28], h.DirCRC)
	return b
}

func decodeHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, fmt.Errorf("%w: %d byte header", ErrIncomplete, len(b))
	}
	if [4]byte(b[0:4]) != magic {
		return header{}, ErrInvalidMagic
	}
	h := header{
		Version:   binary.BigEndian.Uint16(b[4:6]),
		Flags:     binary.BigEndian.Uint16(b[6:8]),
		DirOffset: binary.BigEndian.Uint64(b[8:16]),
		DirLength: binary.BigEndian.Uint64(b[16:24]),
		DirCRC:    binary.BigEndian.Uint32(b[24:28]),
	}
	if h.Version == 0 || h.Version > Version {
		return header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// Compression selects block compression for unchunked datasets.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZSTD
)

var compressionNames = [...]string{"none", "lz4", "zstd"}

func (c Compression) String() string {
	if int(c) < len(compressionNames) {
		return compressionNames[c]
	}
	return fmt.Sprintf("Compression(%d)", c)
}

// ParseCompression parses "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	for i, name := range compressionNames {
		if strings.EqualFold(name, s) {
			return Compression(i), nil
		}
	}
	return 0, fmt.Errorf("dataio: unknown compression %q", s)
}

func (c Compression) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Compression) UnmarshalText(b []byte) error {
	v, err := ParseCompression(string(b))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	*c = v
	return nil
}

// directory is the CBOR document at the end of the file.
type directory struct {
	Version  uint16 `cbor:"1,keyasint"`
	Children []node `cbor:"2,keyasint,omitempty"`
}

// node mirrors one object of the hierarchy.
type node struct {
	Name string `cbor:"1,keyasint"`
	Kind string `cbor:"2,keyasint"`

	Children []node `cbor:"3,keyasint,omitempty"`
	// Link is the path of the first occurrence of an object with several
	// parents. Linked nodes carry nothing else.
	Link string `cbor:"4,keyasint,omitempty"`

	// Image geometry.
	Dims     []uint64  `cbor:"5,keyasint,omitempty"`
	Origin   []float64 `cbor:"6,keyasint,omitempty"`
	Spacing  []float64 `cbor:"7,keyasint,omitempty"`
	CellData string    `cbor:"8,keyasint,omitempty"`

	// Attribute matrix tuple shape or montage grid shape.
	Shape []uint64 `cbor:"9,keyasint,omitempty"`

	Dataset *dataset `cbor:"10,keyasint,omitempty"`
}

// dataset describes the stored bytes of one array.
type dataset struct {
	Type           string   `cbor:"1,keyasint"`
	TupleShape     []uint64 `cbor:"2,keyasint"`
	ComponentShape []uint64 `cbor:"3,keyasint"`
	ChunkShape     []uint64 `cbor:"4,keyasint,omitempty"`

	Offset uint64 `cbor:"5,keyasint"`
	// Length is the stored byte length; RawLength the encoded length
	// before compression.
	Length      uint64      `cbor:"6,keyasint"`
	RawLength   uint64      `cbor:"7,keyasint"`
	Compression Compression `cbor:"8,keyasint"`

	// CRC covers the stored bytes of unchunked datasets.
	CRC uint32 `cbor:"9,keyasint,omitempty"`
	// ChunkCRCs holds one checksum per chunk in enumeration order,
	// computed over the chunk's runs in row-major order.
	ChunkCRCs []uint32 `cbor:"10,keyasint,omitempty"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("dataio: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		TextUnmarshaler:  cbor.TextUnmarshalerTextString,
		MaxNestedLevels:  maxNestedLevels,
		MaxArrayElements: maxElements,
		MaxMapPairs:      maxElements,
	}.DecMode()
	if err != nil {
		panic("dataio: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeDirectory(d *directory) ([]byte, uint32, error) {
	b, err := encMode.Marshal(d)
	if err != nil {
		return nil, 0, err
	}
	return b, hash.CRC32C(b), nil
}

func decodeDirectory(b []byte, crc uint32) (*directory, error) {
	if err := hash.Verify(b, crc); err != nil {
		return nil, fmt.Errorf("%w: directory %w", ErrChecksumMismatch, err)
	}
	var d directory
	if err := decMode.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &d, nil
}
