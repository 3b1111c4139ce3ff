package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/pagination"
	"github.com/utafrali/marketplace/pkg/tracing"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
	"github.com/utafrali/marketplace/services/catalog/internal/mapper"
	"github.com/utafrali/marketplace/services/catalog/internal/repository"
)

var tracer = tracing.Tracer("github.com/utafrali/marketplace/services/catalog/internal/service")

var productMutations = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_product_mutations_total",
		Help: "Product create, update and delete attempts by kind and result",
	},
	[]string{"operation", "kind", "result"},
)

// EventPublisher publishes product domain events. *event.Producer satisfies it.
type EventPublisher interface {
	PublishProductCreated(ctx context.Context, p *domain.Product) error
	PublishProductUpdated(ctx context.Context, p *domain.Product) error
	PublishProductDeleted(ctx context.Context, p *domain.Product, trashed bool) error
}

// ProductService implements the seller product operations. Every write goes
// through the mapper and every read is returned as a projection.
type ProductService struct {
	repo     repository.ProductRepository
	stores   repository.StoreRepository
	mapper   *mapper.Mapper
	settings domain.StoreSettings
	producer EventPublisher
	now      func() time.Time
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(
	repo repository.ProductRepository,
	stores repository.StoreRepository,
	m *mapper.Mapper,
	settings domain.StoreSettings,
	producer EventPublisher,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repo:     repo,
		stores:   stores,
		mapper:   m,
		settings: settings,
		producer: producer,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// ListProducts returns a page of the seller's published, pending and draft
// products, with the total count.
func (s *ProductService) ListProducts(ctx context.Context, sellerID int64, page pagination.Params, view mapper.Context) (_ []*mapper.Record, _ int, err error) {
	ctx, span := tracer.Start(ctx, "ProductService.ListProducts")
	defer func() { tracing.End(span, err, attribute.Int64("seller_id", sellerID)) }()

	if err := s.requireStore(ctx, sellerID); err != nil {
		return nil, 0, err
	}

	products, total, err := s.repo.ListBySeller(ctx, repository.ProductFilter{
		SellerID: sellerID,
		Statuses: domain.ListableStatuses(),
		Limit:    page.PerPage,
		Offset:   page.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, 0, apperrors.NotFoundCode(apperrors.CodeNoProductsFound, "No products found")
	}

	records := make([]*mapper.Record, 0, len(products))
	for _, p := range products {
		rec, err := s.mapper.Project(ctx, s.settings, p, view)
		if err != nil {
			return nil, 0, fmt.Errorf("project product %d: %w", p.ID, err)
		}
		records = append(records, rec)
	}
	return records, total, nil
}

// GetProduct returns the projection of a single product. Any seller with a
// store and the view capability may read any product.
func (s *ProductService) GetProduct(ctx context.Context, sellerID, id int64, view mapper.Context) (_ *mapper.Record, err error) {
	ctx, span := tracer.Start(ctx, "ProductService.GetProduct")
	defer func() { tracing.End(span, err, attribute.Int64("product_id", id)) }()

	if err := s.requireStore(ctx, sellerID); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return s.mapper.Project(ctx, s.settings, p, view)
}

// CreateProduct applies payload to a new product owned by sellerID and
// persists it.
func (s *ProductService) CreateProduct(ctx context.Context, sellerID int64, payload *mapper.Payload, view mapper.Context) (_ *mapper.Record, err error) {
	ctx, span := tracer.Start(ctx, "ProductService.CreateProduct")
	kind := ""
	defer func() {
		s.countMutation("create", kind, err)
		tracing.End(span, err, attribute.Int64("seller_id", sellerID))
	}()

	if err := s.requireStore(ctx, sellerID); err != nil {
		return nil, err
	}

	blank := domain.New(domain.KindSimple)
	blank.SellerID = sellerID

	product, err := s.mapper.Apply(ctx, s.settings, blank, payload, true)
	if err != nil {
		return nil, err
	}
	kind = string(product.Kind())

	now := s.now()
	product.SellerID = sellerID
	product.CreatedAt = now
	product.ModifiedAt = now

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, persistenceError("created", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.Int64("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.Int64("product_id", product.ID),
		slog.Int64("seller_id", sellerID),
		slog.String("kind", kind),
	)

	return s.mapper.Project(ctx, s.settings, product, view)
}

// UpdateProduct applies payload to a product owned by sellerID.
func (s *ProductService) UpdateProduct(ctx context.Context, sellerID, id int64, payload *mapper.Payload, view mapper.Context) (_ *mapper.Record, err error) {
	ctx, span := tracer.Start(ctx, "ProductService.UpdateProduct")
	kind := ""
	defer func() {
		s.countMutation("update", kind, err)
		tracing.End(span, err, attribute.Int64("product_id", id))
	}()

	if err := s.requireStore(ctx, sellerID); err != nil {
		return nil, err
	}
	existing, err := s.ownedProduct(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}

	product, err := s.mapper.Apply(ctx, s.settings, existing, payload, false)
	if err != nil {
		return nil, err
	}
	kind = string(product.Kind())
	product.ModifiedAt = s.now()

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, persistenceError("updated", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.Int64("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.Int64("product_id", product.ID),
		slog.Int64("seller_id", sellerID),
		slog.String("kind", kind),
	)

	return s.mapper.Project(ctx, s.settings, product, view)
}

// DeleteProduct removes a product owned by sellerID and returns its
// projection as it was before deletion. Without force the product is moved
// to the trash instead.
func (s *ProductService) DeleteProduct(ctx context.Context, sellerID, id int64, force bool, view mapper.Context) (_ *mapper.Record, err error) {
	ctx, span := tracer.Start(ctx, "ProductService.DeleteProduct")
	kind := ""
	defer func() {
		s.countMutation("delete", kind, err)
		tracing.End(span, err, attribute.Int64("product_id", id), attribute.Bool("force", force))
	}()

	if err := s.requireStore(ctx, sellerID); err != nil {
		return nil, err
	}
	product, err := s.ownedProduct(ctx, sellerID, id)
	if err != nil {
		return nil, err
	}
	kind = string(product.Kind())

	rec, err := s.mapper.Project(ctx, s.settings, product, view)
	if err != nil {
		return nil, err
	}

	if force {
		err = s.repo.Delete(ctx, id)
	} else {
		product.Status = domain.StatusTrash
		product.ModifiedAt = s.now()
		err = s.repo.Update(ctx, product)
	}
	if err != nil {
		return nil, persistenceError("deleted", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, product, !force); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.Int64("product_id", id),
		slog.Int64("seller_id", sellerID),
		slog.Bool("force", force),
	)

	return rec, nil
}

func (s *ProductService) requireStore(ctx context.Context, sellerID int64) error {
	if sellerID <= 0 {
		return apperrors.NotFoundCode(apperrors.CodeStoreNotFound, "No seller found")
	}
	ok, err := s.stores.Exists(ctx, sellerID)
	if err != nil {
		return fmt.Errorf("check store: %w", err)
	}
	if !ok {
		return apperrors.NotFoundCode(apperrors.CodeStoreNotFound, "No seller found")
	}
	return nil
}

func (s *ProductService) ownedProduct(ctx context.Context, sellerID, id int64) (*domain.Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	if !p.OwnedBy(sellerID) {
		return nil, apperrors.Forbidden(apperrors.CodeNotProductOwner,
			"Sorry, you have no permission to do this. Since it's not your product.")
	}
	return p, nil
}

func (s *ProductService) countMutation(op, kind string, err error) {
	result := "success"
	if err != nil {
		result = apperrors.Code(err)
	}
	if kind == "" {
		kind = "unknown"
	}
	productMutations.WithLabelValues(op, kind, result).Inc()
}

// persistenceError keeps conflicts visible to the caller and reports every
// other storage failure as a persistence error.
func persistenceError(op string, err error) error {
	if errors.Is(err, apperrors.ErrAlreadyExists) || errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	return apperrors.Persistence(op, err)
}
