package sha256

import (
	"errors"
	"sort"
	"sync"
)

// ErrUnknownTransform is returned by LookupTransform for unregistered names.
var ErrUnknownTransform = errors.New("sha256: unknown transform")

// Transform is the SHA-256 compression function. Block folds every 64-byte
// block of p into h in order. Callers guarantee len(p) is a non-zero multiple
// of BlockSize. Implementations must not retain p or h.
type Transform interface {
	Name() string
	Block(h *[8]uint32, p []byte)
}

// TransformFunc adapts a plain function to the Transform interface.
type TransformFunc struct {
	ID string
	Fn func(h *[8]uint32, p []byte)
}

func (f TransformFunc) Name() string { return f.ID }

func (f TransformFunc) Block(h *[8]uint32, p []byte) { f.Fn(h, p) }

// Generic is the portable reference transform.
var Generic Transform = TransformFunc{ID: "generic", Fn: blockGeneric}

var (
	transformMu sync.RWMutex
	transforms  = map[string]Transform{}
)

func init() {
	RegisterTransform(Generic)
}

// RegisterTransform makes t selectable by its name. Registering a name twice
// keeps the first transform.
func RegisterTransform(t Transform) {
	transformMu.Lock()
	defer transformMu.Unlock()
	if _, ok := transforms[t.Name()]; ok {
		return
	}
	transforms[t.Name()] = t
}

// LookupTransform returns the transform registered under name.
func LookupTransform(name string) (Transform, error) {
	transformMu.RLock()
	defer transformMu.RUnlock()
	t, ok := transforms[name]
	if !ok {
		return nil, ErrUnknownTransform
	}
	return t, nil
}

// Transforms lists the registered transform names in sorted order.
func Transforms() []string {
	transformMu.RLock()
	defer transformMu.RUnlock()
	names := make([]string, 0, len(transforms))
	for name := range transforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
