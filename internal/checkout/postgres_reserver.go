package checkout

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/JorgeRiveraMancilla/go-store-api/internal/catalog"
	"github.com/JorgeRiveraMancilla/go-store-api/internal/order"
)

// PostgresReserver implements AtomicReserver on the database the catalog
// store and the order ledger share: every line's stock decrement and the
// order row commit in one transaction.
type PostgresReserver struct {
	db *sql.DB
}

func NewPostgresReserver(db *sql.DB) *PostgresReserver {
	return &PostgresReserver{db: db}
}

func (r *PostgresReserver) ReserveAndInsert(ctx context.Context, reservations []Reservation, o *order.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rsv := range reservations {
		if err := catalog.AdjustStockTx(ctx, tx, rsv.ProductID, -rsv.Quantity); err != nil {
			return err
		}
	}

	if err := order.InsertTx(ctx, tx, o); err != nil {
		return fmt.Errorf("failed to persist order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}
	return nil
}
