package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"orderservice/internal/domain"
	"orderservice/internal/observability"
	"orderservice/internal/repository"
	"orderservice/internal/service"
)

//go:generate mockgen -source internal/httpapi/httpapi.go -destination=internal/httpapi/httpapi_mock_test.go -package=httpapi

type OrderService interface {
	CreateOrder(ctx context.Context, cur domain.CurrentUser, items map[string]any) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id string, cur domain.CurrentUser) (*domain.Order, repository.LookupStats, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, cur domain.CurrentUser) (*domain.Order, error)
	FetchOrders(ctx context.Context, cur domain.CurrentUser, page, pageSize int) (domain.Page[domain.Order], error)
}

type AuthService interface {
	Register(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (service.TokenPair, error)
	CurrentUser(ctx context.Context, rawToken string) (domain.CurrentUser, error)
}

type Server struct {
	orders  OrderService
	auth    AuthService
	logger  *zap.Logger
	metrics observability.Metrics
	router  chi.Router
}

func New(orders OrderService, auth AuthService, logger *zap.Logger, metrics observability.Metrics) *Server {
	s := &Server{
		orders:  orders,
		auth:    auth,
		logger:  logger,
		metrics: metrics,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.observe,
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Post("/register", s.register)
	r.Post("/auth/token", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/orders", s.createOrder)
		r.Get("/orders", s.fetchOrders)
		r.Get("/orders/{order_id}", s.getOrder)
		r.Patch("/orders/{order_id}/status", s.updateOrderStatus)
	})

	s.router = r
}

func (s *Server) Handler() http.Handler { return s.router }

// shutdownTimeout bounds graceful shutdown so a wedged in-flight request
// cannot keep the process alive after the context is canceled.
const shutdownTimeout = 10 * time.Second

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("graceful shutdown timed out, closing", zap.Error(err))
			_ = srv.Close()
		}
	}()
	return srv.ListenAndServe()
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	user, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decode(w, r, &req) {
		return
	}
	pair, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type createOrderRequest struct {
	Items map[string]any `json:"items"`
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	order, err := s.orders.CreateOrder(r.Context(), currentUser(r.Context()), req.Items)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	if id == "" {
		s.writeError(w, domain.InvalidData("order id required"))
		return
	}

	order, st, err := s.orders.GetOrderByID(r.Context(), id, currentUser(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}

	observability.AppendServerTiming(w, "cache", st.CacheMs, "")
	observability.AppendServerTiming(w, "db", st.DBMs, "")
	if st.Source != "" {
		w.Header().Set("X-Source", st.Source)
	}
	observability.SetIfPos(w, "X-Cache-Time", st.CacheMs)
	observability.SetIfPos(w, "X-DB-Time", st.DBMs)

	writeJSON(w, http.StatusOK, order)
}

func (s *Server) fetchOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	result, err := s.orders.FetchOrders(r.Context(), currentUser(r.Context()), page, pageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "order_id")
	var req updateStatusRequest
	if !s.decode(w, r, &req) {
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		s.writeError(w, err)
		return
	}

	order, err := s.orders.UpdateOrderStatus(r.Context(), id, status, currentUser(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Debug("bad request body", zap.Error(err))
		s.writeError(w, domain.InvalidData("bad json"))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
