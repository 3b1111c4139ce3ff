package event

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgkafka "github.com/utafrali/marketplace/pkg/kafka"
	"github.com/utafrali/marketplace/pkg/logger"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestProducer(w *recordingWriter) *Producer {
	return NewProducer(pkgkafka.NewProducerWithWriter(w, nil, logger.Discard()), logger.Discard())
}

func sampleProduct() *domain.Product {
	p := domain.New(domain.KindSimple)
	p.ID = 11
	p.SellerID = 7
	p.Name = "Tee"
	p.Slug = "tee"
	p.Status = domain.StatusPublish
	p.CategoryIDs = []int64{5}
	p.Commerce().SKU = "TEE-1"
	p.Commerce().Price = "9.50"
	return p
}

func TestProducer_PublishProductCreated(t *testing.T) {
	w := &recordingWriter{}
	ctx := logger.WithCorrelationID(context.Background(), "req-1")

	require.NoError(t, newTestProducer(w).PublishProductCreated(ctx, sampleProduct()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "marketplace.product.created", msg.Topic)
	assert.Equal(t, "11", string(msg.Key))

	evt, err := pkgkafka.DecodeEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), evt.SellerID)
	assert.Equal(t, "req-1", evt.CorrelationID)
	assert.Equal(t, SourceCatalogService, evt.Source)

	var data ProductData
	require.NoError(t, evt.DecodeData(&data))
	assert.Equal(t, "simple", data.Kind)
	assert.Equal(t, "TEE-1", data.SKU)
	assert.Equal(t, "9.50", data.Price)
	assert.Equal(t, []int64{5}, data.CategoryIDs)
}

func TestProducer_PublishProductDeleted(t *testing.T) {
	w := &recordingWriter{}

	require.NoError(t, newTestProducer(w).PublishProductDeleted(context.Background(), sampleProduct(), true))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "marketplace.product.deleted", w.msgs[0].Topic)

	evt, err := pkgkafka.DecodeEvent(w.msgs[0].Value)
	require.NoError(t, err)
	var data ProductDeletedData
	require.NoError(t, evt.DecodeData(&data))
	assert.Equal(t, ProductDeletedData{ID: 11, SellerID: 7, Trashed: true}, data)
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}

	err := newTestProducer(w).PublishProductUpdated(context.Background(), sampleProduct())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish marketplace.product.updated event")
}
