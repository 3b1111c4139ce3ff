// Package taxonomy stores attribute taxonomies and terms (categories, tags,
// shipping classes and attribute options) and caches lookups in Redis.
package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/marketplace/pkg/database"
	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// Source is the lookup surface shared by Store and Cache.
type Source interface {
	AttributeTaxonomy(ctx context.Context, id int64) (*domain.AttributeTaxonomy, error)
	AttributeTaxonomyByName(ctx context.Context, name string) (*domain.AttributeTaxonomy, error)
	Term(ctx context.Context, id int64) (*domain.Term, error)
	TermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error)
	TermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error)
	Terms(ctx context.Context, ids []int64) ([]domain.Term, error)
}

const (
	attributeColumns = `id, name, label`
	termColumns      = `id, taxonomy, name, slug`
)

// Store reads taxonomies from PostgreSQL.
type Store struct {
	db database.DBTX
}

// NewStore creates a new PostgreSQL-backed taxonomy store.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// AttributeTaxonomy returns the attribute taxonomy with the given id.
func (s *Store) AttributeTaxonomy(ctx context.Context, id int64) (*domain.AttributeTaxonomy, error) {
	query := `SELECT ` + attributeColumns + ` FROM attribute_taxonomies WHERE id = $1`
	return s.scanAttribute(ctx, "taxonomy.attribute", strconv.FormatInt(id, 10), query, id)
}

// AttributeTaxonomyByName returns the attribute taxonomy named name (pa_color).
func (s *Store) AttributeTaxonomyByName(ctx context.Context, name string) (*domain.AttributeTaxonomy, error) {
	query := `SELECT ` + attributeColumns + ` FROM attribute_taxonomies WHERE name = $1`
	return s.scanAttribute(ctx, "taxonomy.attribute_by_name", name, query, name)
}

// Term returns the term with the given id in any taxonomy.
func (s *Store) Term(ctx context.Context, id int64) (*domain.Term, error) {
	query := `SELECT ` + termColumns + ` FROM terms WHERE id = $1`
	return s.scanTerm(ctx, "taxonomy.term", strconv.FormatInt(id, 10), query, id)
}

// TermByName returns the term of taxonomy whose name matches name,
// ignoring case. The lowest id wins when several match.
func (s *Store) TermByName(ctx context.Context, taxonomy, name string) (*domain.Term, error) {
	query := `
		SELECT ` + termColumns + `
		FROM terms
		WHERE taxonomy = $1 AND lower(name) = lower($2)
		ORDER BY id
		LIMIT 1`
	return s.scanTerm(ctx, "taxonomy.term_by_name", taxonomy+"/"+name, query, taxonomy, name)
}

// TermBySlug returns the term of taxonomy with the given slug.
func (s *Store) TermBySlug(ctx context.Context, taxonomy, slug string) (*domain.Term, error) {
	query := `SELECT ` + termColumns + ` FROM terms WHERE taxonomy = $1 AND slug = $2`
	return s.scanTerm(ctx, "taxonomy.term_by_slug", taxonomy+"/"+slug, query, taxonomy, slug)
}

// Terms returns the terms with the given ids in the order requested. Unknown
// ids are left out.
func (s *Store) Terms(ctx context.Context, ids []int64) (_ []domain.Term, err error) {
	if len(ids) == 0 {
		return []domain.Term{}, nil
	}

	query := `SELECT ` + termColumns + ` FROM terms WHERE id = ANY($1)`
	ctx, end := database.TraceQuery(ctx, "taxonomy.terms", query)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query terms: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]domain.Term, len(ids))
	for rows.Next() {
		var t domain.Term
		if err := rows.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug); err != nil {
			return nil, fmt.Errorf("scan term row: %w", err)
		}
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate term rows: %w", err)
	}

	return orderTerms(ids, byID), nil
}

func orderTerms(ids []int64, byID map[int64]domain.Term) []domain.Term {
	out := make([]domain.Term, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) scanAttribute(ctx context.Context, op, key, query string, args ...any) (_ *domain.AttributeTaxonomy, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var a domain.AttributeTaxonomy
	err = s.db.QueryRow(ctx, query, args...).Scan(&a.ID, &a.Name, &a.Label)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("attribute taxonomy", key)
		}
		return nil, fmt.Errorf("scan attribute taxonomy: %w", err)
	}
	return &a, nil
}

func (s *Store) scanTerm(ctx context.Context, op, key, query string, args ...any) (_ *domain.Term, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var t domain.Term
	err = s.db.QueryRow(ctx, query, args...).Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("term", key)
		}
		return nil, fmt.Errorf("scan term: %w", err)
	}
	return &t, nil
}
