package executor

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/dexarb/internal/domain"
)

// Admission is the in-process gate over concurrent trades: at most one
// in-flight trade per order-independent pair key. It is safe for
// concurrent use.
type Admission struct {
	mu       sync.Mutex
	inFlight map[domain.PairKey]struct{}
}

// NewAdmission creates an empty admission set.
func NewAdmission() *Admission {
	return &Admission{inFlight: make(map[domain.PairKey]struct{})}
}

// TryLock admits the pair when no trade holds it, returning an
// idempotent release closure safe to defer from any exit path. A held
// pair returns ok=false immediately; callers skip rather than wait.
func (a *Admission) TryLock(key domain.PairKey) (release func(), ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, held := a.inFlight[key]; held {
		return nil, false
	}
	a.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.inFlight, key)
			a.mu.Unlock()
		})
	}, true
}

// InFlight returns the currently admitted pair keys, sorted.
func (a *Admission) InFlight() []domain.PairKey {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := make([]domain.PairKey, 0, len(a.inFlight))
	for k := range a.inFlight {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}
