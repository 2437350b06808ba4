package sha256

import (
	"encoding/binary"
	"errors"
)

// SnapshotSize is the length of an exported digest state: eight state words,
// the byte count and the block buffer.
const SnapshotSize = 8*4 + 8 + BlockSize

const (
	magic224      = "sha\x02"
	magic256      = "sha\x03"
	marshaledSize = len(magic256) + 8*4 + BlockSize + 8
)

var (
	// ErrSnapshotSize is returned when a snapshot has the wrong length.
	ErrSnapshotSize = errors.New("sha256: invalid hash state size")

	// ErrSnapshotVariant is returned when a tagged state belongs to the other variant.
	ErrSnapshotVariant = errors.New("sha256: invalid hash state identifier")
)

// Snapshot is the verbatim state of a Digest. It does not record the
// variant; the caller restores it into a digest of the same variant.
type Snapshot [SnapshotSize]byte

// Export copies the complete state of d, including the unused tail of the
// block buffer.
func (d *Digest) Export() Snapshot {
	var s Snapshot
	for i, w := range d.h {
		binary.BigEndian.PutUint32(s[4*i:], w)
	}
	binary.BigEndian.PutUint64(s[32:], d.len)
	copy(s[40:], d.x[:])
	return s
}

// Import replaces the state of d with the exported state b. Only the length
// of b is checked.
func (d *Digest) Import(b []byte) error {
	if len(b) != SnapshotSize {
		return ErrSnapshotSize
	}
	for i := range d.h {
		b, d.h[i] = consumeUint32(b)
	}
	b, d.len = consumeUint64(b)
	copy(d.x[:], b)
	d.finalized = false
	return nil
}

// Import builds a digest of variant v from an exported state.
func Import(v Variant, b []byte, opts ...Option) (*Digest, error) {
	if !v.Valid() {
		return nil, ErrUnknownVariant
	}
	d := Init(v, opts...)
	if err := d.Import(b); err != nil {
		return nil, err
	}
	return d, nil
}

// MarshalBinary encodes the state with a variant identifier so that it
// cannot be restored into a digest of the other variant.
func (d *Digest) MarshalBinary() ([]byte, error) {
	if d.finalized {
		return nil, ErrFinalized
	}
	b := make([]byte, 0, marshaledSize)
	if d.variant == SHA224 {
		b = append(b, magic224...)
	} else {
		b = append(b, magic256...)
	}
	for _, w := range d.h {
		b = appendUint32(b, w)
	}
	nx := int(d.len % BlockSize)
	b = append(b, d.x[:nx]...)
	b = b[:len(b)+len(d.x)-nx] // already zero
	b = appendUint64(b, d.len)
	return b, nil
}

// UnmarshalBinary restores a state produced by MarshalBinary on a digest of
// the same variant.
func (d *Digest) UnmarshalBinary(b []byte) error {
	magic := magic256
	if d.variant == SHA224 {
		magic = magic224
	}
	if len(b) < len(magic) || string(b[:len(magic)]) != magic {
		return ErrSnapshotVariant
	}
	if len(b) != marshaledSize {
		return ErrSnapshotSize
	}
	b = b[len(magic):]
	for i := range d.h {
		b, d.h[i] = consumeUint32(b)
	}
	b = b[copy(d.x[:], b):]
	_, d.len = consumeUint64(b)
	d.finalized = false
	return nil
}

func appendUint64(b []byte, x uint64) []byte {
	var a [8]byte
	binary.BigEndian.PutUint64(a[:], x)
	return append(b, a[:]...)
}

func appendUint32(b []byte, x uint32) []byte {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], x)
	return append(b, a[:]...)
}

func consumeUint64(b []byte) ([]byte, uint64) {
	return b[8:], binary.BigEndian.Uint64(b)
}

func consumeUint32(b []byte) ([]byte, uint32) {
	return b[4:], binary.BigEndian.Uint32(b)
}
