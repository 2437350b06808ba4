package checkpoint

import (
	"encoding/binary"
	"errors"
	"os"
	"time"

	"massnet.org/massdigest/crypto/sha256"
)

const recordVersion byte = 1

var (
	ErrNotFound  = errors.New("checkpoint not found")
	ErrCorrupted = errors.New("checkpoint record corrupted")
	ErrStale     = errors.New("checkpoint does not match file")
)

// Record is a resumable point of a file digest.
type Record struct {
	Path      string
	Algorithm string
	Size      int64
	ModTime   time.Time
	Offset    uint64
	Snapshot  sha256.Snapshot
	UpdatedAt time.Time
}

// NewRecord captures the state of d after it absorbed the first d.Len()
// bytes of the file described by fi.
func NewRecord(path string, fi os.FileInfo, alg sha256.Algorithm, d *sha256.Digest) *Record {
	return &Record{
		Path:      path,
		Algorithm: alg.Name,
		Size:      fi.Size(),
		ModTime:   fi.ModTime(),
		Offset:    d.Len(),
		Snapshot:  d.Export(),
		UpdatedAt: time.Now(),
	}
}

// Matches reports whether the record was taken from the file as it is now.
func (r *Record) Matches(fi os.FileInfo) bool {
	return r.Size == fi.Size() && r.ModTime.Equal(fi.ModTime()) && r.Offset <= uint64(fi.Size())
}

// Restore rebuilds the digest saved in the record.
func (r *Record) Restore(opts ...sha256.Option) (*sha256.Digest, error) {
	alg, err := sha256.LookupAlgorithm(r.Algorithm)
	if err != nil {
		return nil, err
	}
	d, err := sha256.Import(alg.Variant, r.Snapshot[:], opts...)
	if err != nil {
		return nil, err
	}
	if d.Len() != r.Offset {
		return nil, ErrCorrupted
	}
	return d, nil
}

// record layout, big endian:
//   version(1) | len(algorithm)(1) | algorithm | size(8) | modtime(8) |
//   offset(8) | updated(8) | snapshot(sha256.SnapshotSize)
const fixedSize = 1 + 1 + 8*4 + sha256.SnapshotSize

func (r *Record) encode() ([]byte, error) {
	if len(r.Algorithm) == 0 || len(r.Algorithm) > 0xff {
		return nil, ErrCorrupted
	}
	b := make([]byte, 0, fixedSize+len(r.Algorithm))
	b = append(b, recordVersion, byte(len(r.Algorithm)))
	b = append(b, r.Algorithm...)
	var u [8]byte
	for _, v := range []uint64{uint64(r.Size), uint64(r.ModTime.UnixNano()), r.Offset, uint64(r.UpdatedAt.UnixNano())} {
		binary.BigEndian.PutUint64(u[:], v)
		b = append(b, u[:]...)
	}
	return append(b, r.Snapshot[:]...), nil
}

// decodeRecord fails with ErrCorrupted unless the stored algorithm is the
// one the record is keyed by.
func decodeRecord(algorithm, path string, b []byte) (*Record, error) {
	if len(b) < 2 || b[0] != recordVersion {
		return nil, ErrCorrupted
	}
	n := int(b[1])
	if n == 0 || len(b) != fixedSize+n {
		return nil, ErrCorrupted
	}
	if string(b[2:2+n]) != algorithm {
		return nil, ErrCorrupted
	}
	r := &Record{Path: path, Algorithm: algorithm}
	b = b[2+n:]
	r.Size = int64(binary.BigEndian.Uint64(b[0:]))
	r.ModTime = time.Unix(0, int64(binary.BigEndian.Uint64(b[8:])))
	r.Offset = binary.BigEndian.Uint64(b[16:])
	r.UpdatedAt = time.Unix(0, int64(binary.BigEndian.Uint64(b[24:])))
	copy(r.Snapshot[:], b[32:])
	return r, nil
}
