package sha256

import (
	"errors"
	"sync"
)

// ErrUnknownAlgorithm is returned by LookupAlgorithm for unregistered names.
var ErrUnknownAlgorithm = errors.New("sha256: unknown algorithm")

// Algorithm binds a name to a digest variant.
type Algorithm struct {
	Name      string
	Variant   Variant
	Size      int
	BlockSize int
}

// New returns a fresh digest computing this algorithm.
func (a Algorithm) New(opts ...Option) *Digest {
	return Init(a.Variant, opts...)
}

var (
	algorithmMu sync.RWMutex
	algorithms  []Algorithm
)

func init() {
	RegisterAlgorithm(Algorithm{Name: SHA224.String(), Variant: SHA224, Size: Size224, BlockSize: BlockSize})
	RegisterAlgorithm(Algorithm{Name: SHA256.String(), Variant: SHA256, Size: Size, BlockSize: BlockSize})
}

// RegisterAlgorithm adds a to the registry. An algorithm whose name is
// already registered is ignored.
func RegisterAlgorithm(a Algorithm) {
	algorithmMu.Lock()
	defer algorithmMu.Unlock()
	for _, alg := range algorithms {
		if alg.Name == a.Name {
			return
		}
	}
	algorithms = append(algorithms, a)
}

// LookupAlgorithm returns the algorithm registered under name.
func LookupAlgorithm(name string) (Algorithm, error) {
	algorithmMu.RLock()
	defer algorithmMu.RUnlock()
	for _, alg := range algorithms {
		if alg.Name == name {
			return alg, nil
		}
	}
	return Algorithm{}, ErrUnknownAlgorithm
}

// Algorithms returns the registered algorithms in registration order.
func Algorithms() []Algorithm {
	algorithmMu.RLock()
	defer algorithmMu.RUnlock()
	list := make([]Algorithm, len(algorithms))
	copy(list, algorithms)
	return list
}
