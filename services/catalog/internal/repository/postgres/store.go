package postgres

import (
	"context"
	"fmt"

	"github.com/utafrali/marketplace/pkg/database"
)

// StoreRepository implements repository.StoreRepository using PostgreSQL.
type StoreRepository struct {
	db database.DBTX
}

// NewStoreRepository creates a new PostgreSQL-backed store repository.
func NewStoreRepository(db database.DBTX) *StoreRepository {
	return &StoreRepository{db: db}
}

// Exists reports whether sellerID has an enabled store.
func (r *StoreRepository) Exists(ctx context.Context, sellerID int64) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM stores WHERE seller_id = $1 AND enabled)`

	ctx, end := database.TraceQuery(ctx, "stores.exists", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.db.QueryRow(ctx, query, sellerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check store: %w", err)
	}
	return exists, nil
}
