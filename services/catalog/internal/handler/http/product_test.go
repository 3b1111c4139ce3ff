package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/httputil"
	"github.com/utafrali/marketplace/pkg/middleware"
	"github.com/utafrali/marketplace/pkg/pagination"
	"github.com/utafrali/marketplace/services/catalog/internal/mapper"
)

// =============================================================================
// Mock ProductService
// =============================================================================

type mockProductService struct {
	mock.Mock
}

func (m *mockProductService) ListProducts(ctx context.Context, sellerID int64, page pagination.Params, view mapper.Context) ([]*mapper.Record, int, error) {
	args := m.Called(ctx, sellerID, page, view)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*mapper.Record), args.Int(1), args.Error(2)
}

func (m *mockProductService) GetProduct(ctx context.Context, sellerID, id int64, view mapper.Context) (*mapper.Record, error) {
	args := m.Called(ctx, sellerID, id, view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapper.Record), args.Error(1)
}

func (m *mockProductService) CreateProduct(ctx context.Context, sellerID int64, payload *mapper.Payload, view mapper.Context) (*mapper.Record, error) {
	args := m.Called(ctx, sellerID, payload, view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapper.Record), args.Error(1)
}

func (m *mockProductService) UpdateProduct(ctx context.Context, sellerID, id int64, payload *mapper.Payload, view mapper.Context) (*mapper.Record, error) {
	args := m.Called(ctx, sellerID, id, payload, view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapper.Record), args.Error(1)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, sellerID, id int64, force bool, view mapper.Context) (*mapper.Record, error) {
	args := m.Called(ctx, sellerID, id, force, view)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mapper.Record), args.Error(1)
}

// =============================================================================
// Test helpers
// =============================================================================

const testSellerID int64 = 7

// productRouter mounts the handler without token checks; the seller is
// injected directly.
func productRouter(svc *mockProductService) *chi.Mux {
	h := NewProductHandler(svc, slog.New(slog.DiscardHandler))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.Claims{SellerID: testSellerID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{productID}", h.GetProduct)
		r.Put("/{productID}", h.UpdateProduct)
		r.Patch("/{productID}", h.UpdateProduct)
		r.Delete("/{productID}", h.DeleteProduct)
	})
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type recordResponse struct {
	Data  *mapper.Record          `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

type listResponse struct {
	Data  []*mapper.Record        `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func payloadWithName(name string) any {
	return mock.MatchedBy(func(p *mapper.Payload) bool {
		return p.Name.OrElse("") == name
	})
}

// =============================================================================
// GET /api/v1/products - ListProducts
// =============================================================================

func TestListProducts_Success(t *testing.T) {
	svc := new(mockProductService)
	page := pagination.Params{Page: 2, PerPage: 2, Offset: 2}
	svc.On("ListProducts", mock.Anything, testSellerID, page, mapper.ContextView).
		Return([]*mapper.Record{{ID: 3, Name: "Tee"}, {ID: 4, Name: "Cap"}}, 5, nil)

	rec := do(t, productRouter(svc), http.MethodGet, "/api/v1/products?page=2&per_page=2", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, "3", rec.Header().Get("X-Total-Pages"))
	link := rec.Header().Get("Link")
	assert.Contains(t, link, `rel="prev"`)
	assert.Contains(t, link, `rel="next"`)

	resp := decode[listResponse](t, rec)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Cap", resp.Data[1].Name)
	svc.AssertExpectations(t)
}

func TestListProducts_NoProducts(t *testing.T) {
	svc := new(mockProductService)
	svc.On("ListProducts", mock.Anything, testSellerID, pagination.DefaultParams(), mapper.ContextEdit).
		Return(nil, 0, apperrors.NotFoundCode(apperrors.CodeNoProductsFound, "No products found"))

	rec := do(t, productRouter(svc), http.MethodGet, "/api/v1/products?context=edit", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Total-Count"))
	resp := decode[recordResponse](t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, apperrors.CodeNoProductsFound, resp.Error.Code)
}

// =============================================================================
// GET /api/v1/products/{productID} - GetProduct
// =============================================================================

func TestGetProduct_Success(t *testing.T) {
	svc := new(mockProductService)
	svc.On("GetProduct", mock.Anything, testSellerID, int64(11), mapper.ContextEdit).
		Return(&mapper.Record{ID: 11, Name: "Tee", Price: "10"}, nil)

	rec := do(t, productRouter(svc), http.MethodGet, "/api/v1/products/11?context=edit", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[recordResponse](t, rec)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "10", resp.Data.Price)
}

func TestGetProduct_NotFound(t *testing.T) {
	svc := new(mockProductService)
	svc.On("GetProduct", mock.Anything, testSellerID, int64(404), mapper.ContextView).
		Return(nil, apperrors.NotFound("product", "404"))

	rec := do(t, productRouter(svc), http.MethodGet, "/api/v1/products/404", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Equal(t, apperrors.CodeProductNotFound, resp.Error.Code)
}

func TestGetProduct_InvalidID(t *testing.T) {
	svc := new(mockProductService)

	for _, id := range []string{"abc", "0", "-3"} {
		rec := do(t, productRouter(svc), http.MethodGet, "/api/v1/products/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
	svc.AssertNotCalled(t, "GetProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =============================================================================
// POST /api/v1/products - CreateProduct
// =============================================================================

func TestCreateProduct_Success(t *testing.T) {
	svc := new(mockProductService)
	svc.On("CreateProduct", mock.Anything, testSellerID, payloadWithName("Tee"), mapper.ContextView).
		Return(&mapper.Record{ID: 11, Name: "Tee"}, nil)

	rec := do(t, productRouter(svc), http.MethodPost, "/api/v1/products", `{"name":"Tee","categories":[{"id":5}]}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Nil(t, resp.Error)
	assert.Equal(t, int64(11), resp.Data.ID)
	svc.AssertExpectations(t)
}

func TestCreateProduct_MalformedJSON(t *testing.T) {
	svc := new(mockProductService)

	rec := do(t, productRouter(svc), http.MethodPost, "/api/v1/products", `{"name":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Equal(t, apperrors.CodeInvalidInput, resp.Error.Code)
	svc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateProduct_PayloadValidation(t *testing.T) {
	svc := new(mockProductService)

	rec := do(t, productRouter(svc), http.MethodPost, "/api/v1/products",
		`{"name":"Tee","external_url":"not a url"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Equal(t, apperrors.CodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Fields)
}

func TestCreateProduct_WrongContentType(t *testing.T) {
	svc := new(mockProductService)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(`name=Tee`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	productRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCreateProduct_ServiceValidationError(t *testing.T) {
	svc := new(mockProductService)
	svc.On("CreateProduct", mock.Anything, testSellerID, mock.Anything, mapper.ContextView).
		Return(nil, apperrors.Validation(apperrors.CodeProductCategoryRequired, "product category is required"))

	rec := do(t, productRouter(svc), http.MethodPost, "/api/v1/products", `{"name":"Tee"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Equal(t, apperrors.CodeProductCategoryRequired, resp.Error.Code)
}

// =============================================================================
// PUT|PATCH /api/v1/products/{productID} - UpdateProduct
// =============================================================================

func TestUpdateProduct_PutAndPatch(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			svc := new(mockProductService)
			svc.On("UpdateProduct", mock.Anything, testSellerID, int64(11), payloadWithName("Tee v2"), mapper.ContextView).
				Return(&mapper.Record{ID: 11, Name: "Tee v2"}, nil)

			rec := do(t, productRouter(svc), method, "/api/v1/products/11", `{"name":"Tee v2"}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestUpdateProduct_NotOwner(t *testing.T) {
	svc := new(mockProductService)
	svc.On("UpdateProduct", mock.Anything, testSellerID, int64(11), mock.Anything, mapper.ContextView).
		Return(nil, apperrors.Forbidden(apperrors.CodeNotProductOwner, "not your product"))

	rec := do(t, productRouter(svc), http.MethodPut, "/api/v1/products/11", `{"name":"Mine"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Equal(t, apperrors.CodeNotProductOwner, resp.Error.Code)
}

// =============================================================================
// DELETE /api/v1/products/{productID} - DeleteProduct
// =============================================================================

func TestDeleteProduct_ForceDefaults(t *testing.T) {
	tests := []struct {
		query string
		force bool
	}{
		{"", true},
		{"?force=true", true},
		{"?force=false", false},
		{"?force=0", false},
	}
	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			svc := new(mockProductService)
			svc.On("DeleteProduct", mock.Anything, testSellerID, int64(11), tt.force, mapper.ContextView).
				Return(&mapper.Record{ID: 11, Status: "publish"}, nil)

			rec := do(t, productRouter(svc), http.MethodDelete, "/api/v1/products/11"+tt.query, "")

			assert.Equal(t, http.StatusOK, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDeleteProduct_InvalidForce(t *testing.T) {
	svc := new(mockProductService)

	rec := do(t, productRouter(svc), http.MethodDelete, "/api/v1/products/11?force=maybe", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "DeleteProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteProduct_PersistenceError(t *testing.T) {
	svc := new(mockProductService)
	svc.On("DeleteProduct", mock.Anything, testSellerID, int64(11), true, mapper.ContextView).
		Return(nil, apperrors.Persistence("deleted", assert.AnError))

	rec := do(t, productRouter(svc), http.MethodDelete, "/api/v1/products/11", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[recordResponse](t, rec)
	assert.Equal(t, apperrors.CodePersistence, resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
