package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/observability"
	"orderservice/internal/repository"
)

//go:generate mockgen -source internal/service/order.go -destination=internal/service/order_mock_test.go -package=service

const maxPageSize = 100

// publishTimeout bounds the detached publish goroutine; the HTTP request
// may be long gone by the time the broker answers.
const publishTimeout = 10 * time.Second

type OrderRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIDWithStats(ctx context.Context, id string) (*domain.Order, repository.LookupStats, error)
	Create(ctx context.Context, userID string, items map[string]any) (*domain.Order, error)
	UpdateStatus(ctx context.Context, order *domain.Order, status domain.OrderStatus) (*domain.Order, error)
	FetchPage(ctx context.Context, userID string, page, pageSize int) (domain.Page[domain.Order], error)
}

type Publisher interface {
	PublishOrderCreated(ctx context.Context, order *domain.Order) error
}

// OrderService enforces ownership and lifecycle rules over the repository
// and emits the order-created event.
type OrderService struct {
	repo      OrderRepo
	publisher Publisher
	logger    *zap.Logger
	metrics   observability.Metrics
}

func NewOrderService(repo OrderRepo, publisher Publisher, logger *zap.Logger, metrics observability.Metrics) *OrderService {
	return &OrderService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CreateOrder persists the order and fires the created event without
// blocking the caller. The order is durable by the time this returns; a
// publish failure is logged, never surfaced, since downstream consistency
// is eventual.
func (s *OrderService) CreateOrder(ctx context.Context, cur domain.CurrentUser, items map[string]any) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, domain.InvalidData("order items must not be empty")
	}

	order, err := s.repo.Create(ctx, cur.ID, items)
	if err != nil {
		return nil, err
	}

	s.publishAsync(order)
	return order, nil
}

func (s *OrderService) publishAsync(order *domain.Order) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		t0 := time.Now()
		err := s.publisher.PublishOrderCreated(ctx, order)
		s.metrics.ObservePublish(observability.SinceMs(t0), err == nil)
		if err != nil {
			s.logger.Error("order created event publish failed",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("order created event published",
			zap.String("order_id", order.ID),
		)
	}()
}

// GetOrderByID resolves the order and only then checks ownership, so a
// caller probing foreign ids learns nothing beyond "not yours".
func (s *OrderService) GetOrderByID(ctx context.Context, id string, cur domain.CurrentUser) (*domain.Order, repository.LookupStats, error) {
	order, st, err := s.repo.GetByIDWithStats(ctx, id)
	if err != nil {
		return nil, st, err
	}
	if order.CreatorID != cur.ID {
		return nil, st, domain.NotAllowed("no access to order " + id)
	}
	return order, st, nil
}

// UpdateOrderStatus re-validates ownership and the lifecycle transition on
// the current stored row before delegating to the repository's
// compare-and-swap.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, cur domain.CurrentUser) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CreatorID != cur.ID {
		return nil, domain.NotAllowed("no access to order " + id)
	}
	if !order.Status.CanTransitionTo(status) {
		return nil, domain.InvalidData("cannot transition order from " + string(order.Status) + " to " + string(status))
	}
	return s.repo.UpdateStatus(ctx, order, status)
}

func (s *OrderService) FetchOrders(ctx context.Context, cur domain.CurrentUser, page, pageSize int) (domain.Page[domain.Order], error) {
	if page <= 0 || pageSize <= 0 {
		return domain.Page[domain.Order]{}, domain.InvalidData("page and page_size must be positive")
	}
	if pageSize > maxPageSize {
		return domain.Page[domain.Order]{}, domain.InvalidData("page_size must not exceed 100")
	}
	return s.repo.FetchPage(ctx, cur.ID, page, pageSize)
}
