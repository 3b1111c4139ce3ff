package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/marketplace/pkg/httputil"
	"github.com/utafrali/marketplace/pkg/middleware"
	"github.com/utafrali/marketplace/pkg/pagination"
	"github.com/utafrali/marketplace/pkg/validator"
	"github.com/utafrali/marketplace/services/catalog/internal/mapper"
)

// ProductService is the part of service.ProductService the handler needs.
type ProductService interface {
	ListProducts(ctx context.Context, sellerID int64, page pagination.Params, view mapper.Context) ([]*mapper.Record, int, error)
	GetProduct(ctx context.Context, sellerID, id int64, view mapper.Context) (*mapper.Record, error)
	CreateProduct(ctx context.Context, sellerID int64, payload *mapper.Payload, view mapper.Context) (*mapper.Record, error)
	UpdateProduct(ctx context.Context, sellerID, id int64, payload *mapper.Payload, view mapper.Context) (*mapper.Record, error)
	DeleteProduct(ctx context.Context, sellerID, id int64, force bool, view mapper.Context) (*mapper.Record, error)
}

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// ListProducts handles GET /api/v1/products
// @Summary List the seller's products
// @Tags products
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page (max 100)" default(20)
// @Param context query string false "Projection context" Enums(view,edit)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r)

	records, total, err := h.service.ListProducts(r.Context(), middleware.SellerIDFromContext(r.Context()), page, viewContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	pagination.WriteHeaders(w, r, total, page)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: records})
}

// GetProduct handles GET /api/v1/products/{productID}
// @Summary Get a product
// @Tags products
// @Produce json
// @Param productID path int true "Product id"
// @Param context query string false "Projection context" Enums(view,edit)
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/products/{productID} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	record, err := h.service.GetProduct(r.Context(), middleware.SellerIDFromContext(r.Context()), id, viewContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}

// CreateProduct handles POST /api/v1/products
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/products [post]
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	record, err := h.service.CreateProduct(r.Context(), middleware.SellerIDFromContext(r.Context()), payload, viewContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: record})
}

// UpdateProduct handles PUT and PATCH /api/v1/products/{productID}. Only the
// fields present in the body are applied.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	record, err := h.service.UpdateProduct(r.Context(), middleware.SellerIDFromContext(r.Context()), id, payload, viewContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}

// DeleteProduct handles DELETE /api/v1/products/{productID}. The product is
// removed permanently unless force=false, which moves it to the trash. The
// response is the product as it was before deletion.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, r, chi.URLParam(r, "productID"))
	if !ok {
		return
	}

	force := true
	if v := r.URL.Query().Get("force"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "force must be true or false"},
			})
			return
		}
		force = b
	}

	record, err := h.service.DeleteProduct(r.Context(), middleware.SellerIDFromContext(r.Context()), id, force, viewContext(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: record})
}

func viewContext(r *http.Request) mapper.Context {
	return mapper.ParseContext(r.URL.Query().Get("context"))
}

// decodePayload reads and validates the request body. On failure it writes a
// 400 and returns false.
func decodePayload(w http.ResponseWriter, r *http.Request) (*mapper.Payload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, validator.MaxBodyBytes)

	var payload mapper.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteValidationError(w, r, err)
		return nil, false
	}
	if err := payload.Validate(); err != nil {
		httputil.WriteValidationError(w, r, err)
		return nil, false
	}
	return &payload, true
}
