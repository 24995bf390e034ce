package reconcile

import "sync"

// SymbolLocks serializes reconciliations per canonical symbol. Locks are
// created lazily on first use and kept for the process lifetime; the map
// never shrinks, which is fine for the handful of instruments a relay
// actually trades.
type SymbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSymbolLocks() *SymbolLocks {
	return &SymbolLocks{locks: make(map[string]*sync.Mutex)}
}

// Get returns the mutex for symbol, creating it if needed.
func (l *SymbolLocks) Get(symbol string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		l.locks[symbol] = m
	}
	return m
}
