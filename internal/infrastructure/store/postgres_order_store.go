package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/order-orchestrator/internal/domain/order"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqCheckViolation      = "23514"
	pqInvalidText         = "22P02"
)

// PostgresOrderStore stores orders in the orders and order_items tables
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

// Save writes the order and replaces its items in one transaction
func (s *PostgresOrderStore) Save(ctx context.Context, o *order.Order) error {
	id := o.ID
	isNew := id == ""
	if isNew {
		id = uuid.New().String()
	}
	items := assignItemIDs(id, o.Items)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	version := o.Version + 1
	if isNew {
		version = 1
		_, err = tx.ExecContext(ctx,
			`INSERT INTO orders (id, client_id, total, status, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, o.ClientID, o.Total, string(o.Status), version, o.CreatedAt, o.UpdatedAt,
		)
		if err != nil {
			return mapPQError("insert order", err)
		}
	} else {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders
			 SET client_id = $2, total = $3, status = $4, version = $5, updated_at = $6
			 WHERE id = $1 AND version = $7`,
			id, o.ClientID, o.Total, string(o.Status), version, o.UpdatedAt, o.Version,
		)
		if err != nil {
			return mapPQError("update order", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if affected == 0 {
			return s.missingOrConflict(ctx, tx, id)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
			return mapPQError("delete order items", err)
		}
	}

	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, position, product_sku, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			item.ID, id, i, item.ProductSKU, item.Quantity, item.Price,
		)
		if err != nil {
			return mapPQError("insert order item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	o.ID = id
	o.Version = version
	o.Items = items
	return nil
}

// missingOrConflict tells a deleted order apart from a stale version
func (s *PostgresOrderStore) missingOrConflict(ctx context.Context, tx *sql.Tx, id string) error {
	var exists bool
	err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return mapPQError("check order", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return fmt.Errorf("%w: %s", order.ErrVersionConflict, id)
}

func (s *PostgresOrderStore) FindByID(ctx context.Context, id string) (*order.Order, error) {
	o := &order.Order{}
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, client_id, total, status, version, created_at, updated_at
		 FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.ClientID, &o.Total, &status, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, notFoundOnBadID(mapPQError("query order", err), order.ErrOrderNotFound, id)
	}
	o.Status = order.Status(status)

	items, err := s.queryItems(ctx,
		`SELECT id, order_id, product_sku, quantity, price
		 FROM order_items WHERE order_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *PostgresOrderStore) FindAll(ctx context.Context) ([]*order.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, client_id, total, status, version, created_at, updated_at
		 FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, mapPQError("query orders", err)
	}
	defer rows.Close()

	orders := make([]*order.Order, 0)
	byID := make(map[string]*order.Order)
	for rows.Next() {
		o := &order.Order{}
		var status string
		if err := rows.Scan(&o.ID, &o.ClientID, &o.Total, &status, &o.Version, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		o.Status = order.Status(status)
		orders = append(orders, o)
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order rows: %w", err)
	}

	items, err := s.FindAllItems(ctx)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return orders, nil
}

func (s *PostgresOrderStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqInvalidText {
			return false, nil
		}
		return false, mapPQError("check order", err)
	}
	return exists, nil
}

// DeleteByID removes the order; its items go with it through ON DELETE CASCADE
func (s *PostgresOrderStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return notFoundOnBadID(mapPQError("delete order", err), order.ErrOrderNotFound, id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return nil
}

func (s *PostgresOrderStore) FindItemByID(ctx context.Context, itemID string) (*order.Item, error) {
	items, err := s.queryItems(ctx,
		`SELECT id, order_id, product_sku, quantity, price
		 FROM order_items WHERE id = $1`, itemID)
	if err != nil {
		return nil, notFoundOnBadID(err, order.ErrItemNotFound, itemID)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", order.ErrItemNotFound, itemID)
	}
	return &items[0], nil
}

func (s *PostgresOrderStore) FindAllItems(ctx context.Context) ([]order.Item, error) {
	return s.queryItems(ctx,
		`SELECT id, order_id, product_sku, quantity, price
		 FROM order_items ORDER BY order_id, position`)
}

func (s *PostgresOrderStore) queryItems(ctx context.Context, query string, args ...any) ([]order.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapPQError("query order items", err)
	}
	defer rows.Close()

	items := make([]order.Item, 0)
	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductSKU, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order item rows: %w", err)
	}
	return items, nil
}

// assignItemIDs copies items, giving new ones an id and pointing all of them at orderID
func assignItemIDs(orderID string, items []order.Item) []order.Item {
	out := make([]order.Item, len(items))
	for i, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.OrderID = orderID
		out[i] = item
	}
	return out
}

func mapPQError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %w", op, order.ErrVersionConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, order.ErrOrderNotFound)
		case pqCheckViolation:
			return fmt.Errorf("%s: %w", op, checkViolation(pqErr.Constraint))
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func checkViolation(constraint string) error {
	switch {
	case strings.Contains(constraint, "quantity"):
		return order.ErrInvalidQuantity
	case strings.Contains(constraint, "price"):
		return order.ErrInvalidPrice
	default:
		return order.ErrInvalidTotal
	}
}

// notFoundOnBadID maps a malformed UUID to the not-found error; such an id can never be stored
func notFoundOnBadID(err, notFound error, id string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidText {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return err
}

// ConnectPostgres establishes a connection to PostgreSQL
func ConnectPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
