package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orderservice/internal/domain"
)

// Store is the durable record of truth for orders and users.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool new: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgxpool ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables if they are missing, so a fresh
// database works without a separate migration step.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			email           TEXT NOT NULL UNIQUE,
			hashed_password TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS orders (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			items      JSONB NOT NULL,
			status     TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			version    BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS orders_user_id_idx ON orders (user_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, userID string, items map[string]any) (*domain.Order, error) {
	o := domain.Order{
		ID:        domain.NewID(),
		CreatorID: userID,
		Items:     items,
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, items, status, created_at, version)
		VALUES ($1, $2, $3, $4, $5, 0)
	`, o.ID, o.CreatorID, o.Items, o.Status, o.CreatedAt)
	if err != nil {
		return nil, domain.RemoteUnavailable("insert order", err)
	}
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, items, status, created_at, version
		FROM orders WHERE id=$1
	`, id).Scan(&o.ID, &o.CreatorID, &o.Items, &o.Status, &o.CreatedAt, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("order " + id)
	}
	if err != nil {
		return nil, domain.RemoteUnavailable("select order", err)
	}
	return &o, nil
}

// UpdateOrderStatus is a compare-and-swap on (id, version). A version miss
// on an existing row means a concurrent update won the race.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, expectedVersion int64) (*domain.Order, error) {
	var o domain.Order
	err := s.pool.QueryRow(ctx, `
		UPDATE orders SET status=$2, version=version+1
		WHERE id=$1 AND version=$3
		RETURNING id, user_id, items, status, created_at, version
	`, id, status, expectedVersion).Scan(
		&o.ID, &o.CreatorID, &o.Items, &o.Status, &o.CreatedAt, &o.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing row from a lost race.
		if _, gerr := s.GetOrder(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, domain.Conflict("order " + id + " was updated concurrently")
	}
	if err != nil {
		return nil, domain.RemoteUnavailable("update order status", err)
	}
	return &o, nil
}

func (s *Store) ListOrders(ctx context.Context, userID string, page, pageSize int) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, items, status, created_at, version
		FROM orders WHERE user_id=$1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, domain.RemoteUnavailable("list orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CreatorID, &o.Items, &o.Status, &o.CreatedAt, &o.Version); err != nil {
			return nil, domain.RemoteUnavailable("scan order", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.RemoteUnavailable("iterate orders", err)
	}
	return orders, nil
}

func (s *Store) CountOrders(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE user_id=$1`, userID).Scan(&n); err != nil {
		return 0, domain.RemoteUnavailable("count orders", err)
	}
	return n, nil
}

func (s *Store) CreateUser(ctx context.Context, id, email, hashedPassword string) (*domain.User, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password) VALUES ($1, $2, $3)
	`, id, email, hashedPassword)
	if err != nil {
		return nil, domain.RemoteUnavailable("insert user", err)
	}
	return &domain.User{ID: id, Email: email, HashedPassword: hashedPassword}, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, hashed_password FROM users WHERE email=$1
	`, email).Scan(&u.ID, &u.Email, &u.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("user " + email)
	}
	if err != nil {
		return nil, domain.RemoteUnavailable("select user", err)
	}
	return &u, nil
}

func (s *Store) UserExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)
	`, email).Scan(&exists)
	if err != nil {
		return false, domain.RemoteUnavailable("user exists", err)
	}
	return exists, nil
}
