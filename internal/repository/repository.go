package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/observability"
	"orderservice/internal/pkg/breaker"
)

//go:generate mockgen -source internal/repository/repository.go -destination=internal/repository/repository_mock_test.go -package=repository

// Store is the durable side. Its errors are fatal to the call.
type Store interface {
	CreateOrder(ctx context.Context, userID string, items map[string]any) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, expectedVersion int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error)
	CountOrders(ctx context.Context, userID string) (int64, error)
}

// Cache is the best-effort side. Its errors degrade the call to
// store-only behavior, they never fail it.
type Cache interface {
	Get(ctx context.Context, orderID string) (*domain.Order, bool, error)
	Set(ctx context.Context, order *domain.Order, ttl time.Duration) error
	Del(ctx context.Context, orderID string) error
}

type LookupStats struct {
	Source  string
	CacheMs float64
	DBMs    float64
}

// Repository is the single authority for order persistence and cache
// coherence: cache-aside reads, write-through refresh on mutations. The
// breaker stops hammering a flapping cache and lets calls go straight to
// the store until it recovers.
type Repository struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	brk      *breaker.Breaker
	logger   *zap.Logger
	metrics  observability.Metrics
}

func New(store Store, cache Cache, cacheTTL time.Duration, brk *breaker.Breaker, logger *zap.Logger, metrics observability.Metrics) *Repository {
	return &Repository{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		brk:      brk,
		logger:   logger,
		metrics:  metrics,
	}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, _, err := r.GetByIDWithStats(ctx, id)
	return o, err
}

func (r *Repository) GetByIDWithStats(ctx context.Context, id string) (*domain.Order, LookupStats, error) {
	var st LookupStats

	tCache := time.Now()
	if order, ok := r.cacheGet(ctx, id); ok {
		st.Source = observability.SourceCache
		st.CacheMs = observability.SinceMs(tCache)
		r.metrics.IncCacheHit()
		r.metrics.ObserveLookup(st.Source, st.CacheMs)
		return order, st, nil
	}
	st.CacheMs = observability.SinceMs(tCache)
	r.metrics.IncCacheMiss()

	tDB := time.Now()
	order, err := r.store.GetOrder(ctx, id)
	if err != nil {
		return nil, st, err
	}
	st.Source = observability.SourceDB
	st.DBMs = observability.SinceMs(tDB)
	r.metrics.ObserveLookup(st.Source, st.DBMs)

	r.cacheSet(ctx, order)
	return order, st, nil
}

// Create inserts into the store and only then reflects the fresh row into
// the cache. The call does not return before the store write is durable;
// the cache write may fail silently.
func (r *Repository) Create(ctx context.Context, userID string, items map[string]any) (*domain.Order, error) {
	t0 := time.Now()
	order, err := r.store.CreateOrder(ctx, userID, items)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveCreate(observability.SinceMs(t0))

	r.cacheSet(ctx, order)
	return order, nil
}

// UpdateStatus writes through: store first, then a cache refresh with the
// updated record, so an immediate re-read cannot observe the old status
// from cache. Invalidate-only would leave a window for a concurrent reader
// to repopulate the stale row. When the refresh cannot land, the entry is
// deleted instead: the pre-update hash must not outlive the store write.
func (r *Repository) UpdateStatus(ctx context.Context, order *domain.Order, status domain.OrderStatus) (*domain.Order, error) {
	t0 := time.Now()
	updated, err := r.store.UpdateOrderStatus(ctx, order.ID, status, order.Version)
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveStatusUpdate(observability.SinceMs(t0))

	if !r.cacheSet(ctx, updated) {
		r.cacheDel(ctx, updated.ID)
	}
	return updated, nil
}

// FetchPage is store-only: the cache is keyed by single order id, listings
// always bypass it.
func (r *Repository) FetchPage(ctx context.Context, userID string, page, pageSize int) (domain.Page[domain.Order], error) {
	total, err := r.store.CountOrders(ctx, userID)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	var orders []domain.Order
	if total > 0 {
		orders, err = r.store.ListOrders(ctx, userID, page, pageSize)
		if err != nil {
			return domain.Page[domain.Order]{}, err
		}
	}
	return domain.NewPage(orders, page, pageSize, total), nil
}

func (r *Repository) cacheGet(ctx context.Context, id string) (*domain.Order, bool) {
	if r.cache == nil || r.brk.Allow() != nil {
		return nil, false
	}
	order, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		r.brk.Failure()
		r.logger.Warn("cache get failed", zap.String("order_id", id), zap.Error(err))
		return nil, false
	}
	r.brk.Success()
	return order, ok
}

// cacheSet reports whether the entry actually landed in the cache, so
// mutation paths can tell a completed refresh from a skipped or failed one.
func (r *Repository) cacheSet(ctx context.Context, order *domain.Order) bool {
	if r.cache == nil || r.brk.Allow() != nil {
		return false
	}
	if err := r.cache.Set(ctx, order, r.cacheTTL); err != nil {
		r.brk.Failure()
		r.logger.Warn("cache set failed", zap.String("order_id", order.ID), zap.Error(err))
		return false
	}
	r.brk.Success()
	return true
}

// cacheDel drops a possibly stale entry after a failed write-through
// refresh. It bypasses the breaker: against a down redis the delete fails
// like everything else, but a half-recovered redis still holding the old
// hash must not keep serving it until the breaker probes.
func (r *Repository) cacheDel(ctx context.Context, id string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Del(ctx, id); err != nil {
		r.logger.Warn("cache invalidate failed, stale entry may live until TTL",
			zap.String("order_id", id), zap.Error(err))
	}
}
