package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/marketplace/pkg/database"
	"github.com/utafrali/marketplace/pkg/slug"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

type storeDef struct {
	sellerID int64
	name     string
}

type attributeDef struct {
	name    string
	label   string
	options []string
}

// fixtures is the data the API has no endpoint for: seller stores and the
// shared taxonomies products refer to.
type fixtures struct {
	stores        []storeDef
	categories    []string
	tags          []string
	shippingClass []string
	attributes    []attributeDef
}

func defaultFixtures() fixtures {
	return fixtures{
		stores: []storeDef{
			{sellerID: 1, name: "Demo Outfitters"},
			{sellerID: 2, name: "Kitchen Corner"},
		},
		categories:    []string{"Uncategorized", "Clothing", "Home & Kitchen", "Books"},
		tags:          []string{"Cotton", "Gift", "Sale"},
		shippingClass: []string{"Bulky", "Fragile"},
		attributes: []attributeDef{
			{name: "pa_color", label: "Color", options: []string{"Red", "Dark Blue", "Black"}},
			{name: "pa_size", label: "Size", options: []string{"S", "M", "L", "XL"}},
		},
	}
}

// seed upserts f. Running it twice leaves the database unchanged.
func seed(ctx context.Context, db database.DBTX, f fixtures, logger *slog.Logger) error {
	for _, s := range f.stores {
		if _, err := db.Exec(ctx,
			`INSERT INTO stores (seller_id, name, enabled)
			 VALUES ($1, $2, true)
			 ON CONFLICT (seller_id) DO UPDATE SET name = EXCLUDED.name, enabled = true`,
			s.sellerID, s.name,
		); err != nil {
			return fmt.Errorf("seed store %d: %w", s.sellerID, err)
		}
		logger.Info("store seeded", slog.Int64("seller_id", s.sellerID), slog.String("name", s.name))
	}

	groups := []struct {
		taxonomy string
		names    []string
	}{
		{domain.TaxonomyCategory, f.categories},
		{domain.TaxonomyTag, f.tags},
		{domain.TaxonomyShippingClass, f.shippingClass},
	}
	for _, g := range groups {
		for _, name := range g.names {
			if err := seedTerm(ctx, db, g.taxonomy, name, logger); err != nil {
				return err
			}
		}
	}

	for _, a := range f.attributes {
		var id int64
		if err := db.QueryRow(ctx,
			`INSERT INTO attribute_taxonomies (name, label)
			 VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET label = EXCLUDED.label
			 RETURNING id`,
			a.name, a.label,
		).Scan(&id); err != nil {
			return fmt.Errorf("seed attribute %s: %w", a.name, err)
		}
		logger.Info("attribute seeded", slog.String("name", a.name), slog.Int64("id", id))

		for _, option := range a.options {
			if err := seedTerm(ctx, db, a.name, option, logger); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedTerm(ctx context.Context, db database.DBTX, taxonomy, name string, logger *slog.Logger) error {
	var id int64
	if err := db.QueryRow(ctx,
		`INSERT INTO terms (taxonomy, name, slug)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (taxonomy, slug) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`,
		taxonomy, name, slug.Generate(name),
	).Scan(&id); err != nil {
		return fmt.Errorf("seed term %s/%s: %w", taxonomy, name, err)
	}
	logger.Debug("term seeded", slog.String("taxonomy", taxonomy), slog.String("name", name), slog.Int64("id", id))
	return nil
}
