package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/pkg/httputil"
	"github.com/utafrali/backoffice/pkg/pagination"
)

// ManufacturerHandler handles HTTP requests for manufacturer endpoints.
type ManufacturerHandler struct {
	service service.ManufacturerManager
	logger  *slog.Logger
}

// NewManufacturerHandler creates a new manufacturer HTTP handler.
func NewManufacturerHandler(svc service.ManufacturerManager, logger *slog.Logger) *ManufacturerHandler {
	return &ManufacturerHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateManufacturerRequest is the JSON request body for creating a manufacturer.
type CreateManufacturerRequest struct {
	Name          string `json:"name" validate:"required,min=1,max=100"`
	OwnerName     string `json:"owner_name" validate:"required,min=1,max=100"`
	Country       string `json:"country" validate:"required,min=1,max=60"`
	Email         string `json:"email" validate:"required,email"`
	Address       string `json:"address" validate:"required,min=1,max=255"`
	Phone         string `json:"phone" validate:"required,e164"`
	Rate          int    `json:"rate" validate:"gte=0,lte=5"`
	EstablishDate string `json:"establish_date" validate:"omitempty,datetime=2006-01-02"`
	IsActive      *bool  `json:"is_active"`
}

// UpdateManufacturerRequest is the JSON request body for updating a manufacturer.
type UpdateManufacturerRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=100"`
	OwnerName     *string `json:"owner_name" validate:"omitempty,min=1,max=100"`
	Country       *string `json:"country" validate:"omitempty,min=1,max=60"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Address       *string `json:"address" validate:"omitempty,min=1,max=255"`
	Phone         *string `json:"phone" validate:"omitempty,e164"`
	Rate          *int    `json:"rate" validate:"omitempty,gte=0,lte=5"`
	EstablishDate *string `json:"establish_date" validate:"omitempty,datetime=2006-01-02"`
	IsActive      *bool   `json:"is_active"`
}

// --- Handlers ---

// ListManufacturers handles GET /api/v1/manufacturers
func (h *ManufacturerHandler) ListManufacturers(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)

	manufacturers, total, err := h.service.List(r.Context(), p.Page, p.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(manufacturers, total, p.Page, p.PerPage))
}

// GetManufacturer handles GET /api/v1/manufacturers/{id}
func (h *ManufacturerHandler) GetManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// CreateManufacturer handles POST /api/v1/manufacturers
// A login account with the Manufacturer role is provisioned alongside.
func (h *ManufacturerHandler) CreateManufacturer(w http.ResponseWriter, r *http.Request) {
	var req CreateManufacturerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	established, ok := parseDate(w, "establish_date", req.EstablishDate)
	if !ok {
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	m, err := h.service.Create(r.Context(), service.CreateManufacturerInput{
		Name:          req.Name,
		OwnerName:     req.OwnerName,
		Country:       req.Country,
		Email:         req.Email,
		Address:       req.Address,
		Phone:         req.Phone,
		Rate:          req.Rate,
		EstablishDate: established,
		IsActive:      isActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: m})
}

// UpdateManufacturer handles PUT /api/v1/manufacturers/{id}
func (h *ManufacturerHandler) UpdateManufacturer(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateManufacturerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	established, ok := parseOptionalDate(w, "establish_date", req.EstablishDate)
	if !ok {
		return
	}

	m, err := h.service.Update(r.Context(), id, service.UpdateManufacturerInput{
		Name:          req.Name,
		OwnerName:     req.OwnerName,
		Country:       req.Country,
		Email:         req.Email,
		Address:       req.Address,
		Phone:         req.Phone,
		Rate:          req.Rate,
		EstablishDate: established,
		IsActive:      req.IsActive,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: m})
}

// DeleteManufacturer handles DELETE /api/v1/manufacturers/{id}
func (h *ManufacturerHandler) DeleteManufacturer(w http.ResponseWriter, r *http.Request) {
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

// ListProducts handles GET /api/v1/manufacturers/{id}/products
func (h *ManufacturerHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	products, err := h.service.Products(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// AddProduct handles POST /api/v1/manufacturers/{id}/products/{productId}
func (h *ManufacturerHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	if err := h.service.AddProduct(r.Context(), id, productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{
		Data: map[string]string{"manufacturer_id": id, "product_id": productID},
	})
}

// RemoveProduct handles DELETE /api/v1/manufacturers/{id}/products/{productId}
func (h *ManufacturerHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	if err := h.service.RemoveProduct(r.Context(), id, productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	noContent(w)
}
