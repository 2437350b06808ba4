// Package sha256 implements incremental SHA-256 and SHA-224 digests as defined
// in FIPS 180-4.
//
// A Digest buffers partial blocks between calls, drives an injectable block
// Transform over whole blocks and applies the FIPS padding on Final. Its state
// can be exported to a fixed-size snapshot and imported again, which allows a
// long computation to be suspended and resumed in another goroutine or process.
//
// A Digest is not safe for concurrent use. Distinct digests share nothing and
// may be driven in parallel.
package sha256

import (
	"encoding/binary"
	"errors"
	"hash"
)

// Size is the size of a SHA-256 checksum in bytes.
const Size = 32

// Size224 is the size of a SHA-224 checksum in bytes.
const Size224 = 28

// BlockSize is the block size of SHA-256 and SHA-224 in bytes.
const BlockSize = 64

const (
	// bytes left in the last block for the message bit length
	lenSize = 8
	padTo   = BlockSize - lenSize
)

var (
	// ErrFinalized is reported when a digest is used after Final without Reset.
	ErrFinalized = errors.New("sha256: digest used after Final")

	// ErrUnknownVariant is returned when a variant tag or name is not recognized.
	ErrUnknownVariant = errors.New("sha256: unknown variant")
)

var padding = [BlockSize]byte{0x80}

// Digest is the running state of a SHA-256 or SHA-224 computation.
type Digest struct {
	h   [8]uint32
	len uint64
	x   [BlockSize]byte

	variant   Variant
	transform Transform
	finalized bool
}

// Option configures a Digest at construction.
type Option func(d *Digest)

// WithTransform makes the digest use t as its block transform.
// A nil t selects the generic transform.
func WithTransform(t Transform) Option {
	return func(d *Digest) {
		if t != nil {
			d.transform = t
		}
	}
}

// Init returns a fresh digest for the given variant. It panics if v is not
// a known variant; use ParseVariant to validate untrusted input first.
func Init(v Variant, opts ...Option) *Digest {
	if !v.Valid() {
		panic(ErrUnknownVariant)
	}
	d := &Digest{variant: v, transform: Generic}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// New returns a new hash.Hash computing the SHA-256 checksum. The Hash also
// implements encoding.BinaryMarshaler and encoding.BinaryUnmarshaler.
func New() hash.Hash {
	return Init(SHA256)
}

// New224 returns a new hash.Hash computing the SHA-224 checksum.
func New224() hash.Hash {
	return Init(SHA224)
}

// Reset puts the digest back into its initial state for its variant.
func (d *Digest) Reset() {
	d.h = d.variant.IV()
	d.len = 0
	d.x = [BlockSize]byte{}
	d.finalized = false
}

// Variant reports whether d computes SHA-256 or SHA-224.
func (d *Digest) Variant() Variant { return d.variant }

// Transform returns the block transform used by d.
func (d *Digest) Transform() Transform { return d.transform }

// Size returns the number of bytes Sum and Final produce.
func (d *Digest) Size() int { return d.variant.Size() }

// BlockSize returns the hash's block size.
func (d *Digest) BlockSize() int { return BlockSize }

// Len returns the number of message bytes absorbed since the last Reset.
func (d *Digest) Len() uint64 { return d.len }

// Update absorbs p into the digest. Whole blocks are handed to the transform
// as soon as they are available and the remainder is kept for the next call.
func (d *Digest) Update(p []byte) {
	if d.finalized {
		panic(ErrFinalized)
	}
	d.update(p)
}

func (d *Digest) update(p []byte) {
	if len(p) == 0 {
		return
	}
	partial := int(d.len % BlockSize)
	d.len += uint64(len(p))

	if partial+len(p) < BlockSize {
		copy(d.x[partial:], p)
		return
	}

	done := 0
	if partial > 0 {
		done = copy(d.x[partial:], p)
		d.transform.Block(&d.h, d.x[:])
	}
	if n := (len(p) - done) / BlockSize; n > 0 {
		d.transform.Block(&d.h, p[done:done+n*BlockSize])
		done += n * BlockSize
	}
	copy(d.x[:], p[done:])
}

// Write implements io.Writer. It never fails on a live digest.
func (d *Digest) Write(p []byte) (int, error) {
	if d.finalized {
		return 0, ErrFinalized
	}
	d.update(p)
	return len(p), nil
}

// Final applies the padding, returns the digest and wipes the state. The
// digest must be Reset before it is used again.
func (d *Digest) Final() []byte {
	if d.finalized {
		panic(ErrFinalized)
	}
	out := make([]byte, d.variant.Size())
	d.final(out)
	return out
}

// Sum appends the current checksum to b without changing the state of d.
func (d *Digest) Sum(b []byte) []byte {
	if d.finalized {
		panic(ErrFinalized)
	}
	d0 := *d
	var out [Size]byte
	n := d0.variant.Size()
	d0.final(out[:n])
	b = append(b, out[:n]...)
	out = [Size]byte{}
	return b
}

// final writes len(out) digest bytes into out. The state is wiped on return.
func (d *Digest) final(out []byte) {
	defer d.wipe()

	var sum [Size]byte
	defer func() { sum = [Size]byte{} }()

	bits := d.len << 3
	index := d.len % BlockSize
	padlen := padTo - index
	if index >= padTo {
		padlen = BlockSize + padTo - index
	}
	d.update(padding[:padlen])

	var length [lenSize]byte
	binary.BigEndian.PutUint64(length[:], bits)
	d.update(length[:])

	if d.len%BlockSize != 0 {
		panic("sha256: padding left a partial block")
	}

	for i, s := range d.h {
		binary.BigEndian.PutUint32(sum[i*4:], s)
	}
	copy(out, sum[:])
}

func (d *Digest) wipe() {
	d.h = [8]uint32{}
	d.len = 0
	d.x = [BlockSize]byte{}
	d.finalized = true
}

// Wiped reports whether the state holds no message material, which is the
// case after Final.
func (d *Digest) Wiped() bool {
	return d.h == [8]uint32{} && d.len == 0 && d.x == [BlockSize]byte{}
}

// Sum256 returns the SHA-256 checksum of the data.
func Sum256(data []byte) [Size]byte {
	var out [Size]byte
	d := Init(SHA256)
	d.update(data)
	d.final(out[:])
	return out
}

// Sum224 returns the SHA-224 checksum of the data.
func Sum224(data []byte) [Size224]byte {
	var out [Size224]byte
	d := Init(SHA224)
	d.update(data)
	d.final(out[:])
	return out
}
