package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// PostgresLedger implements Ledger on postgres. Line snapshots and the
// address are stored as JSON; the status transition is a conditional UPDATE
// on the current status, so duplicate webhooks cannot double-apply.
type PostgresLedger struct {
	db *sql.DB
}

func NewPostgresLedger(cred *Credentials) (*PostgresLedger, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresLedger{db: db}, nil
}

func (l *PostgresLedger) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(l.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (l *PostgresLedger) Close() error {
	return l.db.Close()
}

func (l *PostgresLedger) Insert(ctx context.Context, o *Order) error {
	return insertOrder(ctx, l.db, o)
}

// InsertTx persists the order inside an open transaction, so a caller can
// commit it together with the stock decrements it depends on.
func InsertTx(ctx context.Context, tx *sql.Tx, o *Order) error {
	return insertOrder(ctx, tx, o)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertOrder(ctx context.Context, q execer, o *Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	addressJSON, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("failed to marshal order address: %w", err)
	}

	query := `INSERT INTO orders (id, buyer_id, items, subtotal, delivery_fee, total, status, payment_intent_id, address, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, insertErr := q.ExecContext(ctx, query,
		o.ID,
		o.BuyerID,
		itemsJSON,
		o.Subtotal,
		o.DeliveryFee,
		o.Total,
		o.Status,
		o.PaymentIntentID,
		addressJSON)
	if insertErr != nil {
		return fmt.Errorf("failed to insert order: %w", insertErr)
	}
	return nil
}

func (l *PostgresLedger) FindByID(ctx context.Context, id string) (*Order, error) {
	return l.findOne(ctx, "id = $1", id)
}

func (l *PostgresLedger) FindByPaymentIntentID(ctx context.Context, intentID string) (*Order, error) {
	if intentID == "" {
		return nil, ErrOrderNotFound
	}
	return l.findOne(ctx, "payment_intent_id = $1", intentID)
}

func (l *PostgresLedger) FindByBuyer(ctx context.Context, buyerID string) ([]Order, error) {
	query := selectColumns + ` FROM orders WHERE buyer_id = $1 ORDER BY created_at ASC`

	rows, err := l.db.QueryContext(ctx, query, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	return orders, nil
}

func (l *PostgresLedger) UpdateStatus(ctx context.Context, orderID string, status Status) error {
	if !StatusPending.CanTransitionTo(status) {
		return ErrIllegalTransition
	}

	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`

	res, err := l.db.ExecContext(ctx, query, orderID, status, StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := l.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check order existence: %w", err)
		}
		if !exists {
			return ErrOrderNotFound
		}
		return ErrIllegalTransition
	}
	return nil
}

const selectColumns = `SELECT id, buyer_id, items, subtotal, delivery_fee, total, status, payment_intent_id, address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (l *PostgresLedger) findOne(ctx context.Context, where string, arg any) (*Order, error) {
	query := selectColumns + ` FROM orders WHERE ` + where

	o, err := scanOrder(l.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var itemsJSON, addressJSON []byte

	err := row.Scan(
		&o.ID, &o.BuyerID, &itemsJSON, &o.Subtotal, &o.DeliveryFee, &o.Total,
		&o.Status, &o.PaymentIntentID, &addressJSON, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(addressJSON, &o.Address); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order address: %w", err)
	}
	return &o, nil
}
