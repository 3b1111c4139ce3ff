package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/marketplace/pkg/database"
	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
	"github.com/utafrali/marketplace/services/catalog/internal/repository"
)

const productColumns = `id, seller_id, kind, status, name, slug, sku, parent_id, category_ids, tag_ids, data, details, created_at, modified_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// Searchable fields are columns; the rest of the product is kept as JSONB in
// data (shared fields) and details (kind-specific fields).
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// Create inserts a new product into the database and sets its ID.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	data, details, err := encodeProduct(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (seller_id, kind, status, name, slug, sku, parent_id, category_ids, tag_ids, data, details, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "products.create", query)
	defer func() { end(err) }()

	c := p.Commerce()
	err = r.db.QueryRow(ctx, query,
		p.SellerID,
		string(p.Kind()),
		string(p.Status),
		p.Name,
		p.Slug,
		c.SKU,
		c.ParentID,
		p.CategoryIDs,
		p.TagIDs,
		data,
		details,
		p.CreatedAt,
		p.ModifiedAt,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", c.SKU)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.get", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Product returns the product with the given id. It lets the repository serve
// as the mapper's catalog.
func (r *ProductRepository) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

// ListBySeller returns a page of the seller's products newest first, with
// the total count of matching rows.
func (r *ProductRepository) ListBySeller(ctx context.Context, filter repository.ProductFilter) (_ []*domain.Product, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	conditions = append(conditions, fmt.Sprintf("seller_id = $%d", argIndex))
	args = append(args, filter.SellerID)
	argIndex++

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, statuses)
		argIndex++
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := max(filter.Offset, 0)

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, strings.Join(conditions, " AND "), argIndex, argIndex+1,
	)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "products.list", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   = []*domain.Product{}
		totalCount int
	)
	for rows.Next() {
		p, err := scanProduct(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, totalCount, nil
}

// Update overwrites an existing product.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	data, details, err := encodeProduct(p)
	if err != nil {
		return err
	}

	query := `
		UPDATE products
		SET kind = $1, status = $2, name = $3, slug = $4, sku = $5, parent_id = $6,
		    category_ids = $7, tag_ids = $8, data = $9, details = $10, modified_at = $11
		WHERE id = $12`

	ctx, end := database.TraceQuery(ctx, "products.update", query)
	defer func() { end(err) }()

	c := p.Commerce()
	ct, err := r.db.Exec(ctx, query,
		string(p.Kind()),
		string(p.Status),
		p.Name,
		p.Slug,
		c.SKU,
		c.ParentID,
		p.CategoryIDs,
		p.TagIDs,
		data,
		details,
		p.ModifiedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "sku", c.SKU)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(p.ID, 10))
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", strconv.FormatInt(id, 10))
	}
	return nil
}

// RelatedIDs returns up to limit published products of p's seller that share
// a category or tag with p, in random order.
func (r *ProductRepository) RelatedIDs(ctx context.Context, p *domain.Product, limit int) (_ []int64, err error) {
	if len(p.CategoryIDs) == 0 && len(p.TagIDs) == 0 {
		return []int64{}, nil
	}

	query := `
		SELECT id
		FROM products
		WHERE seller_id = $1 AND id <> $2 AND status = 'publish'
		  AND (category_ids && $3 OR tag_ids && $4)
		ORDER BY random()
		LIMIT $5`

	ctx, end := database.TraceQuery(ctx, "products.related", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, p.SellerID, p.ID, nonNilIDs(p.CategoryIDs), nonNilIDs(p.TagIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("query related products: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("collect related products: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanProduct reads one products row selected with productColumns, followed
// by any extra destinations.
func scanProduct(row rowScanner, extra ...any) (*domain.Product, error) {
	var (
		p           domain.Product
		kind        string
		status      string
		sku         string
		parentID    int64
		categoryIDs []int64
		tagIDs      []int64
		data        []byte
		details     []byte
	)

	dest := []any{
		&p.ID,
		&p.SellerID,
		&kind,
		&status,
		&p.Name,
		&p.Slug,
		&sku,
		&parentID,
		&categoryIDs,
		&tagIDs,
		&data,
		&details,
		&p.CreatedAt,
		&p.ModifiedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	cols := p
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal product data: %w", err)
		}
	}
	p.ID, p.SellerID, p.Name, p.Slug = cols.ID, cols.SellerID, cols.Name, cols.Slug
	p.CreatedAt, p.ModifiedAt = cols.CreatedAt, cols.ModifiedAt
	p.Status = domain.ParseStatus(status)
	p.CategoryIDs = nonNilIDs(categoryIDs)
	p.TagIDs = nonNilIDs(tagIDs)
	normalizeSlices(&p)

	k, _ := domain.ParseKind(kind)
	p.Details = domain.NewDetails(k)
	if len(details) > 0 {
		if err := json.Unmarshal(details, p.Details); err != nil {
			return nil, fmt.Errorf("unmarshal product details: %w", err)
		}
	}
	c := p.Commerce()
	c.SKU = sku
	c.ParentID = parentID

	return &p, nil
}

func encodeProduct(p *domain.Product) (data, details []byte, err error) {
	data, err = json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal product data: %w", err)
	}
	details, err = json.Marshal(p.Details)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal product details: %w", err)
	}
	return data, details, nil
}

func normalizeSlices(p *domain.Product) {
	p.GalleryImageIDs = nonNilIDs(p.GalleryImageIDs)
	if p.Attributes == nil {
		p.Attributes = []domain.Attribute{}
	}
	if p.Meta == nil {
		p.Meta = []domain.MetaEntry{}
	}
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "23505")
}
