package taxonomy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

const keyPrefix = "taxonomy:"

// Cache is a read-through Redis cache in front of a Source. Redis failures
// are logged and fall back to the source. Misses are not cached.
type Cache struct {
	next   Source
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache creates a cache in front of next whose entries expire after ttl.
func NewCache(next Source, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func attributeKey(id int64) string    { return keyPrefix + "attr:" + strconv.FormatInt(id, 10) }
func attributeNameKey(n string) string { return keyPrefix + "attr-name:" + n }
func termKey(id int64) string         { return keyPrefix + "term:" + strconv.FormatInt(id, 10) }

func termNameKey(taxonomy, name string) string {
	return keyPrefix + "term-name:" + taxonomy + ":" + strings.ToLower(name)
}

func termSlugKey(taxonomy, slug string) string {
	return keyPrefix + "term-slug:" + taxonomy + ":" + slug
}

func (c *Cache) AttributeTaxonomy(ctx context.Context, id int64) (*domain.AttributeTaxonomy, error) {
	return readThrough(ctx, c, attributeKey(id), func() (*domain.AttributeTaxonomy, error) {
		return c.next.AttributeTaxonomy(ctx, id)
	})
}

func (c *Cache) AttributeTaxonomyByName(ctx context.Context, name string) (*domain.AttributeTaxonomy, error) {
	return readThrough(ctx, c, attributeNameKey(name), func() (*domain.AttributeTaxonomy, error) {
		return c.next.AttributeTaxonomyByName(ctx, name)
	})
}

func (c *Cache) Term(ctx context.Context, id int64) (*domain.Term, error) {
	return readThrough(ctx, c, termKey(id), func() (*domain.Term, error) {
		return c.next.Term(ctx, id)
	})
}

func (c *Cache) TermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error) {
	return readThrough(ctx, c, termNameKey(taxonomy, name), func() (*domain.Term, error) {
		return c.next.TermByName(ctx, taxonomy, name)
	})
}

func (c *Cache) TermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error) {
	return readThrough(ctx, c, termSlugKey(taxonomy, slug), func() (*domain.Term, error) {
		return c.next.TermBySlug(ctx, taxonomy, slug)
	})
}

// Terms reads all cached ids with one MGET and loads the rest from the
// source in a single call.
func (c *Cache) Terms(ctx context.Context, ids []int64) ([]domain.Term, error) {
	if len(ids) == 0 {
		return []domain.Term{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = termKey(id)
	}

	byID := make(map[int64]domain.Term, len(ids))
	var missing []int64

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "taxonomy cache mget failed", slog.String("error", err.Error()))
		missing = ids
	} else {
		for i, v := range vals {
			var t domain.Term
			s, ok := v.(string)
			if !ok || json.Unmarshal([]byte(s), &t) != nil {
				missing = append(missing, ids[i])
				continue
			}
			byID[t.ID] = t
		}
	}

	if len(missing) > 0 {
		loaded, err := c.next.Terms(ctx, missing)
		if err != nil {
			return nil, err
		}
		pipe := c.client.Pipeline()
		for _, t := range loaded {
			byID[t.ID] = t
			if data, err := json.Marshal(t); err == nil {
				pipe.Set(ctx, termKey(t.ID), data, c.ttl)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.WarnContext(ctx, "taxonomy cache fill failed", slog.String("error", err.Error()))
		}
	}

	return orderTerms(ids, byID), nil
}

func readThrough[T any](ctx context.Context, c *Cache, key string, load func() (*T, error)) (*T, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return &v, nil
		}
		c.logger.WarnContext(ctx, "taxonomy cache entry unreadable", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "taxonomy cache get failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	v, err := load()
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, key, v); err != nil {
		c.logger.WarnContext(ctx, "taxonomy cache set failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return v, nil
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
