package mapper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/services/catalog/internal/domain"
)

// ============================================================================
// Create rules
// ============================================================================

func TestApply_CreateShirt(t *testing.T) {
	f := newFixture()
	p, err := f.mapper.Apply(context.Background(), settings(), nil,
		payload(t, `{"name":"Shirt","categories":[{"id":5}]}`), true)

	require.NoError(t, err)
	assert.Equal(t, domain.KindSimple, p.Kind())
	assert.Equal(t, domain.StatusDraft, p.Status)
	assert.Equal(t, []int64{5}, p.CategoryIDs)
	assert.Equal(t, "Shirt", p.Name)
	assert.Equal(t, "shirt", p.Slug)
	assert.True(t, p.IsNew())
}

func TestApply_CreateRequiresName(t *testing.T) {
	f := newFixture()
	_, err := f.mapper.Apply(context.Background(), settings(), nil,
		payload(t, `{"name":"  ","categories":[{"id":5}]}`), true)
	requireCode(t, err, apperrors.CodeProductNameRequired)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestApply_CreateRequiresCategory(t *testing.T) {
	f := newFixture()
	_, err := f.mapper.Apply(context.Background(), settings(), nil,
		payload(t, `{"name":"Shirt","categories":[]}`), true)
	requireCode(t, err, apperrors.CodeProductCategoryRequired)
}

func TestApply_TooManyCategoriesInSingleMode(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 10
	existing.CategoryIDs = []int64{5}

	_, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"categories":[{"id":5},{"id":6}]}`), false)

	requireCode(t, err, apperrors.CodeTooManyCategories)
	assert.Equal(t, []int64{5}, existing.CategoryIDs)
}

func TestApply_MultipleCategoriesAllowedInMultipleMode(t *testing.T) {
	f := newFixture()
	s := settings()
	s.CategoryMode = domain.CategoryModeMultiple

	p, err := f.mapper.Apply(context.Background(), s, nil,
		payload(t, `{"name":"Shirt","categories":[{"id":5},{"id":6}]}`), true)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, p.CategoryIDs)
}

func TestApply_VariationIsRejected(t *testing.T) {
	f := newFixture()

	_, err := f.mapper.Apply(context.Background(), settings(), nil,
		payload(t, `{"type":"variation","name":"Shirt","categories":[{"id":5}]}`), true)
	requireCode(t, err, apperrors.CodeVariationNotAllowed)

	existing := domain.New(domain.KindVariation)
	existing.ID = 3
	_, err = f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{"name":"x"}`), false)
	requireCode(t, err, apperrors.CodeVariationNotAllowed)

	// Sending another type does not convert an existing variation.
	_, err = f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"type":"simple","regular_price":"1"}`), false)
	requireCode(t, err, apperrors.CodeVariationNotAllowed)
	assert.Equal(t, domain.KindVariation, existing.Kind())
}

// ============================================================================
// Kind resolution
// ============================================================================

func TestApply_KindResolution(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	existing := domain.New(domain.KindExternal)
	existing.ID = 1

	p, err := f.mapper.Apply(ctx, settings(), existing, payload(t, `{}`), false)
	require.NoError(t, err)
	assert.Equal(t, domain.KindExternal, p.Kind(), "kind is inherited")

	p, err = f.mapper.Apply(ctx, settings(), existing, payload(t, `{"type":"grouped"}`), false)
	require.NoError(t, err)
	assert.Equal(t, domain.KindGrouped, p.Kind())

	p, err = f.mapper.Apply(ctx, settings(), existing, payload(t, `{"type":"bundle"}`), false)
	require.NoError(t, err)
	assert.Equal(t, domain.KindSimple, p.Kind(), "unknown type falls back to simple")
}

func TestApply_DoesNotModifyExisting(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	existing.Name = "Old"

	p, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"name":"New","regular_price":"9.99"}`), false)
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, "Old", existing.Name)
	assert.Equal(t, "", existing.Commerce().RegularPrice)
}

func TestApply_AbsentAndNullLeaveFieldsUntouched(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	existing.Name = "Keep"
	existing.Description = "<p>body</p>"
	existing.Commerce().SKU = "SKU-1"

	p, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"description":null}`), false)
	require.NoError(t, err)
	assert.Equal(t, "Keep", p.Name)
	assert.Equal(t, "<p>body</p>", p.Description)
	assert.Equal(t, "SKU-1", p.Commerce().SKU)
}

// ============================================================================
// Field setters
// ============================================================================

func TestApply_ContentFields(t *testing.T) {
	f := newFixture()
	p, err := f.mapper.Apply(context.Background(), settings(), nil, payload(t, `{
		"name": "Tee<script>alert(1)</script>",
		"description": "<p onclick=\"x()\">Soft</p>",
		"status": "published",
		"slug": "My Tee!",
		"menu_order": 4,
		"reviews_allowed": false,
		"catalog_visibility": "search",
		"purchase_note": "<b>Thanks</b> ",
		"featured": true,
		"sku": " <i>TEE-1</i> ",
		"categories": [{"id": 5}]
	}`), true)

	require.NoError(t, err)
	assert.Equal(t, "Tee", p.Name)
	assert.Equal(t, "<p>Soft</p>", p.Description)
	assert.Equal(t, domain.StatusDraft, p.Status, "unknown status falls back to draft")
	assert.Equal(t, "my-tee", p.Slug)
	assert.Equal(t, 4, p.MenuOrder)
	assert.False(t, p.ReviewsAllowed)
	assert.Equal(t, domain.VisibilitySearch, p.CatalogVisibility)
	assert.Equal(t, "Thanks", p.PurchaseNote)
	assert.True(t, p.Featured)
	assert.Equal(t, "TEE-1", p.Commerce().SKU)
}

func TestApply_EncodedMarkupIsNotRevived(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{
		"sku": "&lt;img src=x onerror=alert(1)&gt;",
		"purchase_note": "&lt;script&gt;alert(1)&lt;/script&gt;"
	}`), false)

	require.NoError(t, err)
	assert.NotContains(t, p.Commerce().SKU, "<img")
	assert.NotContains(t, p.PurchaseNote, "<script")
}

func TestApply_InvalidEnumsAndValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"tax status", `{"tax_status":"sometimes"}`, apperrors.CodeInvalidTaxStatus},
		{"catalog visibility", `{"catalog_visibility":"secret"}`, apperrors.CodeInvalidCatalogVisibility},
		{"backorders", `{"backorders":"maybe"}`, apperrors.CodeInvalidBackorders},
		{"negative price", `{"regular_price":"-1"}`, apperrors.CodeInvalidPrice},
		{"malformed price", `{"sale_price":"ten"}`, apperrors.CodeInvalidPrice},
		{"malformed date", `{"date_on_sale_from":"tomorrow"}`, apperrors.CodeInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			existing := domain.New(domain.KindSimple)
			existing.ID = 1
			_, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, tt.body), false)
			requireCode(t, err, tt.code)
		})
	}
}

func TestApply_VirtualClearsDimensions(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	existing.Commerce().Weight = "2"
	existing.Commerce().Dimensions = domain.Dimensions{Length: "1", Width: "2", Height: "3"}

	p, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"virtual":true,"weight":"5"}`), false)
	require.NoError(t, err)
	assert.True(t, p.Commerce().Virtual)
	assert.Empty(t, p.Commerce().Weight)
	assert.Equal(t, domain.Dimensions{}, p.Commerce().Dimensions)

	p, err = f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"weight":"5","dimensions":{"height":"9"}}`), false)
	require.NoError(t, err)
	assert.Equal(t, "5", p.Commerce().Weight)
	assert.Equal(t, domain.Dimensions{Length: "1", Width: "2", Height: "9"}, p.Commerce().Dimensions)
}

func TestApply_ShippingClassBySlug(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{"shipping_class":"bulky"}`), false)
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.Commerce().ShippingClassID)

	p, err = f.mapper.Apply(context.Background(), settings(), p, payload(t, `{"shipping_class":"missing"}`), false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Commerce().ShippingClassID)
}

func TestApply_LinkedIDsDropNonPositive(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"upsell_ids":[3,0,-2,4],"cross_sell_ids":[]}`), false)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, p.Commerce().UpsellIDs)
	assert.Empty(t, p.Commerce().CrossSellIDs)
}

func TestApply_TermsPassThrough(t *testing.T) {
	f := newFixture()
	s := settings()
	s.CategoryMode = domain.CategoryModeMultiple
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), s, existing,
		payload(t, `{"categories":[{"id":5},{"id":5},{"id":999}],"tags":[{"id":9}]}`), false)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 5, 999}, p.CategoryIDs)
	assert.Equal(t, []int64{9}, p.TagIDs)
}

func TestApply_Downloads(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{
		"downloads": [{"name":"Guide","file":"https://cdn.example.com/guide.pdf"}],
		"download_limit": 5
	}`), false)
	require.NoError(t, err)
	assert.Empty(t, p.Commerce().Downloads, "ignored while not downloadable")
	assert.Equal(t, -1, p.Commerce().DownloadLimit)

	p, err = f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{
		"downloadable": true,
		"downloads": [
			{"name":"","file":"https://cdn.example.com/files/guide.pdf"},
			{"name":"Empty","file":""}
		],
		"download_limit": -5,
		"download_expiry": -1
	}`), false)
	require.NoError(t, err)
	require.Len(t, p.Commerce().Downloads, 1)
	assert.Equal(t, "guide.pdf", p.Commerce().Downloads[0].Name)
	assert.Equal(t, 5, p.Commerce().DownloadLimit)
	assert.Equal(t, -1, p.Commerce().DownloadExpiry)
}

func TestApply_KindSpecificFields(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	simple := domain.New(domain.KindSimple)
	simple.ID = 1
	p, err := f.mapper.Apply(ctx, settings(), simple,
		payload(t, `{"external_url":"https://example.com","grouped_products":[4]}`), false)
	require.NoError(t, err)
	assert.IsType(t, &domain.Simple{}, p.Details)

	p, err = f.mapper.Apply(ctx, settings(), simple,
		payload(t, `{"type":"external","external_url":" https://example.com/buy ","button_text":"<b>Buy</b>"}`), false)
	require.NoError(t, err)
	ext := p.Details.(*domain.External)
	assert.Equal(t, "https://example.com/buy", ext.URL)
	assert.Equal(t, "Buy", ext.ButtonText)

	p, err = f.mapper.Apply(ctx, settings(), simple,
		payload(t, `{"type":"grouped","grouped_products":[4,-4,0,7]}`), false)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, p.Details.(*domain.Grouped).Children)
}

func TestApply_MetaUpsert(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	existing.UpsertMeta(0, "color", []byte(`"red"`))

	p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{
		"meta_data": [
			{"id": 1, "key": "color", "value": "blue"},
			{"key": "color", "value": "green"},
			{"key": "", "value": "dropped"},
			{"key": "novalue"},
			{"key": "nullvalue", "value": null},
			{"id": 1, "value": null}
		]
	}`), false)
	require.NoError(t, err)
	require.Len(t, p.Meta, 2)
	assert.JSONEq(t, `"blue"`, string(p.Meta[0].Value))
	assert.Equal(t, "color", p.Meta[1].Key)
	assert.JSONEq(t, `"green"`, string(p.Meta[1].Value))
	for _, m := range p.Meta {
		assert.NotEqual(t, "nullvalue", m.Key)
	}
}

// ============================================================================
// Pricing
// ============================================================================

func TestApply_ParentKindsNeverCarryPrices(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"regular_price":"10","sale_price":"5"}`,
		`{"regular_price":"10","date_on_sale_from":"2024-01-01","date_on_sale_to_gmt":"2024-12-31T00:00:00"}`,
	}
	for _, kind := range []domain.Kind{domain.KindVariable, domain.KindGrouped} {
		for i, body := range bodies {
			t.Run(fmt.Sprintf("%s/%d", kind, i), func(t *testing.T) {
				f := newFixture()
				from := fixedNow.Add(-time.Hour)
				existing := domain.New(kind)
				existing.ID = 1
				c := existing.Commerce()
				c.RegularPrice, c.SalePrice, c.Price = "20", "15", "15"
				c.SaleFrom, c.SaleTo = &from, &from

				p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, body), false)
				require.NoError(t, err)
				got := p.Commerce()
				assert.Empty(t, got.RegularPrice)
				assert.Empty(t, got.SalePrice)
				assert.Empty(t, got.Price)
				assert.Nil(t, got.SaleFrom)
				assert.Nil(t, got.SaleTo)
			})
		}
	}
}

func TestApply_SaleDateUTCWins(t *testing.T) {
	f := newFixture()
	s := settings()
	loc := time.FixedZone("UTC+3", 3*3600)
	s.Location = loc
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), s, existing, payload(t, `{
		"date_on_sale_to": "2024-07-01T10:00:00",
		"date_on_sale_to_gmt": "2024-08-01T10:00:00",
		"date_on_sale_from": "2024-06-01T03:00:00"
	}`), false)
	require.NoError(t, err)
	c := p.Commerce()
	require.NotNil(t, c.SaleTo)
	assert.Equal(t, time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC), *c.SaleTo)
	require.NotNil(t, c.SaleFrom)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *c.SaleFrom, "local dates are read in the store zone")

	p, err = f.mapper.Apply(context.Background(), s, p, payload(t, `{"date_on_sale_to_gmt":""}`), false)
	require.NoError(t, err)
	assert.Nil(t, p.Commerce().SaleTo, "empty value clears the boundary")
}

func TestApply_ComputesPrice(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"regular_price":"20","sale_price":"15"}`), false)
	require.NoError(t, err)
	assert.Equal(t, "15", p.Commerce().Price)

	p, err = f.mapper.Apply(context.Background(), settings(), p,
		payload(t, `{"date_on_sale_from_gmt":"2030-01-01T00:00:00"}`), false)
	require.NoError(t, err)
	assert.Equal(t, "20", p.Commerce().Price, "sale has not started")
}

func TestApply_Idempotent(t *testing.T) {
	f := newFixture()
	s := settings()
	body := `{
		"name": "Shirt",
		"regular_price": "20",
		"sale_price": "15",
		"in_stock": true,
		"stock_quantity": 4,
		"manage_stock": true,
		"categories": [{"id": 5}],
		"attributes": [{"id": 1, "options": ["Red"], "variation": true}],
		"images": [{"id": 100, "position": 0}, {"id": 101}],
		"meta_data": [{"id": 1, "key": "color", "value": "blue"}],
		"downloadable": true,
		"downloads": [{"name": "Guide", "file": "https://cdn.example.com/guide.pdf"}]
	}`
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	existing.UpsertMeta(0, "color", []byte(`"red"`))

	once, err := f.mapper.Apply(context.Background(), s, existing, payload(t, body), false)
	require.NoError(t, err)
	twice, err := f.mapper.Apply(context.Background(), s, once, payload(t, body), false)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

// ============================================================================
// Stock through Apply
// ============================================================================

func TestApply_InventoryDelta(t *testing.T) {
	f := newFixture()
	qty := 10
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	existing.Commerce().ManageStock = true
	existing.Commerce().StockQuantity = &qty

	p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{"inventory_delta":-3}`), false)
	require.NoError(t, err)
	require.NotNil(t, p.Commerce().StockQuantity)
	assert.Equal(t, 7, *p.Commerce().StockQuantity)
	assert.Equal(t, 10, qty)
}

func TestApply_ManageStockIgnoredWhenStoreDoesNotManage(t *testing.T) {
	f := newFixture()
	s := settings()
	s.ManageStock = false
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	p, err := f.mapper.Apply(context.Background(), s, existing,
		payload(t, `{"manage_stock":true,"backorders":"yes","stock_quantity":3,"in_stock":false}`), false)
	require.NoError(t, err)
	c := p.Commerce()
	assert.False(t, c.ManageStock)
	assert.Equal(t, domain.BackordersNo, c.Backorders)
	assert.Nil(t, c.StockQuantity)
	assert.Equal(t, domain.StockOutOfStock, c.StockStatus)
}

// ============================================================================
// Default attributes
// ============================================================================

func TestApply_DefaultAttributes(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindVariable)
	existing.ID = 1
	existing.Attributes = []domain.Attribute{
		{TaxonomyID: 1, Name: "pa_color", Options: []string{"dark-blue", "red"}, Variation: true},
		{Name: "Fabric Type", Options: []string{"Cotton", "Linen"}, Variation: true},
		{TaxonomyID: 2, Name: "pa_size", Options: []string{"l"}},
	}

	p, err := f.mapper.Apply(context.Background(), settings(), existing, payload(t, `{
		"default_attributes": [
			{"id": 1, "option": "Dark Blue"},
			{"name": "Fabric Type", "option": "Linen"},
			{"id": 2, "option": "Large"},
			{"name": "Missing", "option": "x"},
			{"id": 1, "option": "Not A Term"},
			{"option": "orphan"}
		]
	}`), false)
	require.NoError(t, err)

	assert.Equal(t, []domain.DefaultAttribute{
		{Name: "pa_color", Option: "not-a-term"},
		{Name: "fabric-type", Option: "Linen"},
	}, p.Details.(*domain.Variable).DefaultAttributes)
}

func TestApply_DefaultAttributesIgnoredForSimple(t *testing.T) {
	f := newFixture()
	existing := domain.New(domain.KindSimple)
	existing.ID = 1
	_, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"default_attributes":[{"id":1,"option":"Red"}]}`), false)
	require.NoError(t, err)
}

func TestApply_TaxonomyFailureIsReturned(t *testing.T) {
	f := newFixture()
	f.tax.failWith = errors.New("connection reset")
	existing := domain.New(domain.KindSimple)
	existing.ID = 1

	_, err := f.mapper.Apply(context.Background(), settings(), existing,
		payload(t, `{"attributes":[{"id":1,"options":["Red"]}]}`), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
