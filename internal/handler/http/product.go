package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/pkg/httputil"
	"github.com/utafrali/backoffice/pkg/pagination"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service service.ProductManager
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc service.ProductManager, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name           string          `json:"name" validate:"required,min=1,max=40"`
	Price          decimal.Decimal `json:"price" validate:"gte=0"`
	Inventory      decimal.Decimal `json:"inventory" validate:"gte=0"`
	ProductionDate string          `json:"production_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate     string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

// UpdateProductRequest is the JSON request body for updating a product.
// All fields are optional.
type UpdateProductRequest struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=40"`
	Price          *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	Inventory      *decimal.Decimal `json:"inventory" validate:"omitempty,gte=0"`
	ProductionDate *string          `json:"production_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate     *string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	IsAvailable    *bool            `json:"is_available"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
// Supports ?name= (substring) and ?available=true|false.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.ProductFilter{Page: p.Page, PerPage: p.PerPage}

	q := r.URL.Query()
	if v := q.Get("name"); v != "" {
		filter.Name = &v
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteBadRequest(w, "INVALID_PARAMETER", "available must be true or false")
			return
		}
		filter.Available = &available
	}

	products, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, p.Page, p.PerPage))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// ListManufacturers handles GET /api/v1/products/{id}/manufacturers
func (h *ProductHandler) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	manufacturers, err := h.service.Manufacturers(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if manufacturers == nil {
		manufacturers = []domain.Manufacturer{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: manufacturers})
}

// CreateProduct handles POST /api/v1/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	produced, ok := parseDate(w, "production_date", req.ProductionDate)
	if !ok {
		return
	}
	expires, ok := parseDate(w, "expiry_date", req.ExpiryDate)
	if !ok {
		return
	}

	product, err := h.service.Create(r.Context(), service.CreateProductInput{
		Name:           req.Name,
		Price:          req.Price,
		Inventory:      req.Inventory,
		ProductionDate: produced,
		ExpiryDate:     expires,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /api/v1/products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	produced, ok := parseOptionalDate(w, "production_date", req.ProductionDate)
	if !ok {
		return
	}
	expires, ok := parseOptionalDate(w, "expiry_date", req.ExpiryDate)
	if !ok {
		return
	}

	product, err := h.service.Update(r.Context(), id, service.UpdateProductInput{
		Name:           req.Name,
		Price:          req.Price,
		Inventory:      req.Inventory,
		ProductionDate: produced,
		ExpiryDate:     expires,
		IsAvailable:    req.IsAvailable,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	noContent(w)
}
