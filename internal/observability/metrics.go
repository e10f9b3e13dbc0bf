package observability

import "time"

type Metrics interface {
	ObserveLookup(source string, durMs float64)
	ObserveCreate(durMs float64)
	ObserveStatusUpdate(durMs float64)
	ObserveHTTP(method, route string, status int, durMs float64)
	ObservePublish(durMs float64, ok bool)
	ObserveTask(durMs float64, ok bool)
	IncCacheHit()
	IncCacheMiss()
}

const (
	SourceCache = "cache"
	SourceDB    = "db"
)

// SinceMs reports elapsed time in milliseconds with microsecond precision,
// the unit every Metrics method takes.
func SinceMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
