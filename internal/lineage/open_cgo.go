//go:build cgo

package lineage

import "fmt"

// Open returns the store for backend ("memory" or "kuzu"). path is the
// Kuzu database directory; empty means an in-memory Kuzu database.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemStore(), nil
	case BackendKuzu:
		if path == "" {
			return NewKuzuStore()
		}
		return NewKuzuFileStore(path)
	default:
		return nil, fmt.Errorf("lineage: unknown backend %q", backend)
	}
}
