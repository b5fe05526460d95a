package uniswap

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry caches pools by address so token metadata is resolved once per
// pool and reused across cycles.
type Registry struct {
	backend Backend

	mu    sync.Mutex
	pools map[common.Address]*Pool
}

// NewRegistry returns an empty registry binding pools through backend.
func NewRegistry(backend Backend) *Registry {
	return &Registry{
		backend: backend,
		pools:   make(map[common.Address]*Pool),
	}
}

// Get returns the pool at address, binding and resolving it on first use.
func (r *Registry) Get(ctx context.Context, address string) (*Pool, error) {
	addr := common.HexToAddress(address)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pools[addr]; ok {
		return p, nil
	}

	p, err := NewPool(ctx, r.backend, address)
	if err != nil {
		return nil, err
	}
	r.pools[addr] = p

	return p, nil
}

// List returns the addresses of all resolved pools, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs := make([]string, 0, len(r.pools))
	for a := range r.pools {
		addrs = append(addrs, a.Hex())
	}
	sort.Strings(addrs)

	return addrs
}
