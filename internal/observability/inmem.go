package observability

import "sync"

// Inmem keeps the last N observations plus running counters. Enough for
// tests and local debugging; swap in a real backend behind the Metrics
// interface when one is needed.
type Inmem struct {
	mu     sync.Mutex
	last   []any
	max    int
	totals struct {
		cacheHits, cacheMiss int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{max: max}
}

func (m *Inmem) push(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

func (m *Inmem) ObserveLookup(source string, durMs float64) {
	m.push(struct {
		Kind   string
		Source string
		Dur    float64
	}{"lookup", source, durMs})
}

func (m *Inmem) ObserveCreate(durMs float64) {
	m.push(struct {
		Kind string
		Dur  float64
	}{"create", durMs})
}

func (m *Inmem) ObserveStatusUpdate(durMs float64) {
	m.push(struct {
		Kind string
		Dur  float64
	}{"status_update", durMs})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(struct {
		Kind          string
		Method, Route string
		Status        int
		Dur           float64
	}{"http", method, route, status, durMs})
}

func (m *Inmem) ObservePublish(durMs float64, ok bool) {
	m.push(struct {
		Kind string
		Dur  float64
		OK   bool
	}{"publish", durMs, ok})
}

func (m *Inmem) ObserveTask(durMs float64, ok bool) {
	m.push(struct {
		Kind string
		Dur  float64
		OK   bool
	}{"task", durMs, ok})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}

// CacheTotals returns hit/miss counts accumulated so far.
func (m *Inmem) CacheTotals() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totals.cacheHits, m.totals.cacheMiss
}
