//go:build !cgo

package lineage

import (
	"errors"
	"fmt"
)

// ErrKuzuUnavailable is returned when the kuzu backend is requested from a
// binary built without CGO.
var ErrKuzuUnavailable = errors.New("lineage: kuzu backend requires a cgo build")

// Open returns the store for backend ("memory" or "kuzu").
func Open(backend, _ string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemStore(), nil
	case BackendKuzu:
		return nil, ErrKuzuUnavailable
	default:
		return nil, fmt.Errorf("lineage: unknown backend %q", backend)
	}
}
