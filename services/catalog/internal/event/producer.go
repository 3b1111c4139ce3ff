package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/marketplace/pkg/kafka"
	"github.com/utafrali/marketplace/pkg/logger"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// Kafka topics for product domain events.
var (
	TopicProductCreated = pkgkafka.Topic(AggregateTypeProduct, "created")
	TopicProductUpdated = pkgkafka.Topic(AggregateTypeProduct, "updated")
	TopicProductDeleted = pkgkafka.Topic(AggregateTypeProduct, "deleted")
)

// Aggregate type constant.
const AggregateTypeProduct = "product"

// Source identifier for events originating from the catalog service.
const SourceCatalogService = "catalog-service"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID          int64   `json:"id"`
	SellerID    int64   `json:"seller_id"`
	Kind        string  `json:"kind"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Status      string  `json:"status"`
	SKU         string  `json:"sku,omitempty"`
	Price       string  `json:"price"`
	StockStatus string  `json:"stock_status"`
	CategoryIDs []int64 `json:"category_ids"`
	TagIDs      []int64 `json:"tag_ids"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID       int64 `json:"id"`
	SellerID int64 `json:"seller_id"`
	// Trashed is true when the product was moved to the trash rather than
	// removed.
	Trashed bool `json:"trashed"`
}

// Producer publishes product domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductData {
	c := p.Commerce()
	return ProductData{
		ID:          p.ID,
		SellerID:    p.SellerID,
		Kind:        string(p.Kind()),
		Name:        p.Name,
		Slug:        p.Slug,
		Status:      string(p.Status),
		SKU:         c.SKU,
		Price:       c.Price,
		StockStatus: string(c.StockStatus),
		CategoryIDs: p.CategoryIDs,
		TagIDs:      p.TagIDs,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, product.SellerID, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, product.ID, product.SellerID, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, product *domain.Product, trashed bool) error {
	data := ProductDeletedData{ID: product.ID, SellerID: product.SellerID, Trashed: trashed}
	return p.publish(ctx, TopicProductDeleted, product.ID, product.SellerID, data)
}

func (p *Producer) publish(ctx context.Context, topic string, productID, sellerID int64, data any) error {
	event, err := pkgkafka.NewEvent(topic, productID, AggregateTypeProduct, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	event.WithSeller(sellerID)
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.Int64("product_id", productID),
	)
	return nil
}
