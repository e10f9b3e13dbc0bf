package observability

type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) ObserveLookup(string, float64)            {}
func (Noop) ObserveCreate(float64)                    {}
func (Noop) ObserveStatusUpdate(float64)              {}
func (Noop) ObserveHTTP(string, string, int, float64) {}
func (Noop) ObservePublish(float64, bool)             {}
func (Noop) ObserveTask(float64, bool)                {}
func (Noop) IncCacheHit()                             {}
func (Noop) IncCacheMiss()                            {}
