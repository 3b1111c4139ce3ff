package mapper

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/sanitize"
	"github.com/utafrali/marketplace/pkg/slug"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// normalizeAttributes turns payload attribute entries into domain attributes.
// Entries without an id or a name, with an unknown taxonomy id, or with a
// taxonomy whose options all sanitize to nothing are dropped.
func (m *Mapper) normalizeAttributes(ctx context.Context, raw []AttributeInput) ([]domain.Attribute, error) {
	out := make([]domain.Attribute, 0, len(raw))
	for _, in := range raw {
		attr := domain.Attribute{
			Position:  abs(in.Position),
			Visible:   in.Visible,
			Variation: in.Variation,
		}

		if in.ID > 0 {
			tax, err := m.taxonomy.AttributeTaxonomy(ctx, in.ID)
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			attr.TaxonomyID = tax.ID
			attr.Name = tax.Name
			attr.Options = taxonomyOptions(in.Options.OrElse(nil))
			if len(attr.Options) == 0 {
				continue
			}
			out = append(out, attr)
			continue
		}

		name := sanitize.Plain(in.Name)
		if name == "" {
			continue
		}
		opts, ok := in.Options.Get()
		if !ok {
			continue
		}
		attr.Name = name
		attr.Options = customOptions(opts)
		out = append(out, attr)
	}
	return out, nil
}

func taxonomyOptions(opts OptionList) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		if s := slug.Generate(sanitize.Plain(o)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func customOptions(opts OptionList) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = strings.TrimSpace(o)
	}
	return out
}

// normalizeDefaultAttributes resolves default selections for a variable
// product. An entry is kept only when it names one of the product's own
// variation attributes and carries a non-empty option. Later entries for the
// same attribute replace earlier ones in place.
func (m *Mapper) normalizeDefaultAttributes(ctx context.Context, p *domain.Product, raw []DefaultAttributeInput) ([]domain.DefaultAttribute, error) {
	out := make([]domain.DefaultAttribute, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, in := range raw {
		key, err := m.defaultAttributeKey(ctx, in)
		if err != nil {
			return nil, err
		}
		if key == "" {
			continue
		}

		attr, ok := p.FindAttribute(key)
		if !ok || !attr.Variation {
			continue
		}

		value := sanitize.Plain(in.Option)
		if attr.IsTaxonomy() && value != "" {
			term, err := m.taxonomy.TermByName(ctx, attr.Name, value)
			switch {
			case err == nil:
				value = term.Slug
			case errors.Is(err, apperrors.ErrNotFound):
				value = slug.Generate(value)
			default:
				return nil, err
			}
		}
		if value == "" {
			continue
		}

		if i, seen := index[key]; seen {
			out[i].Option = value
			continue
		}
		index[key] = len(out)
		out = append(out, domain.DefaultAttribute{Name: key, Option: value})
	}
	return out, nil
}

func (m *Mapper) defaultAttributeKey(ctx context.Context, in DefaultAttributeInput) (string, error) {
	if in.ID > 0 {
		tax, err := m.taxonomy.AttributeTaxonomy(ctx, in.ID)
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return tax.Name, nil
	}
	return slug.Generate(in.Name), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
