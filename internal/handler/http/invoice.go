package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/repository"
	"github.com/utafrali/backoffice/internal/service"
	apperrors "github.com/utafrali/backoffice/pkg/errors"
	"github.com/utafrali/backoffice/pkg/httputil"
	"github.com/utafrali/backoffice/pkg/pagination"
)

// InvoiceHandler handles HTTP requests for invoice endpoints.
type InvoiceHandler struct {
	service service.InvoiceManager
	logger  *slog.Logger
}

// NewInvoiceHandler creates a new invoice HTTP handler.
func NewInvoiceHandler(svc service.InvoiceManager, logger *slog.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateInvoiceRequest is the JSON request body for creating an invoice.
type CreateInvoiceRequest struct {
	OwnerFirstName     string          `json:"owner_first_name" validate:"required,min=1,max=100"`
	OwnerLastName      string          `json:"owner_last_name" validate:"required,min=1,max=100"`
	IdentificationCode string          `json:"identification_code" validate:"required,min=1,max=64"`
	IssuerName         string          `json:"issuer_name" validate:"required,min=1,max=100"`
	IssueDate          string          `json:"issue_date" validate:"required,datetime=2006-01-02"`
	TotalPrice         decimal.Decimal `json:"total_price" validate:"gte=0"`
	PaymentStatus      string          `json:"payment_status" validate:"omitempty,oneof=Pending Payed Cancelled"`
}

// UpdateInvoiceRequest is the JSON request body for updating invoice header fields.
type UpdateInvoiceRequest struct {
	OwnerFirstName *string `json:"owner_first_name" validate:"omitempty,min=1,max=100"`
	OwnerLastName  *string `json:"owner_last_name" validate:"omitempty,min=1,max=100"`
	IssuerName     *string `json:"issuer_name" validate:"omitempty,min=1,max=100"`
	IssueDate      *string `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
}

// AssignProductRequest adds a product line to an invoice.
type AssignProductRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Count     int    `json:"count" validate:"required,gt=0"`
}

// PayInvoiceRequest carries the tendered amount.
type PayInvoiceRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// --- Response types ---

// AssignProductResponse reports whether a new line was created. Assigning a
// product that is already on the invoice leaves it unchanged.
type AssignProductResponse struct {
	InvoiceID string `json:"invoice_id"`
	ProductID string `json:"product_id"`
	Added     bool   `json:"added"`
}

// InvoiceTotalResponse is the live line item sum of an invoice.
type InvoiceTotalResponse struct {
	InvoiceID string          `json:"invoice_id"`
	Total     decimal.Decimal `json:"total"`
}

// --- Handlers ---

// ListInvoices handles GET /api/v1/invoices
// Filters: owner_first_name, owner_last_name, issuer_name, status,
// issue_date, payment_date.
func (h *InvoiceHandler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)
	filter := repository.InvoiceFilter{Page: p.Page, PerPage: p.PerPage}

	q := r.URL.Query()
	if v := q.Get("owner_first_name"); v != "" {
		filter.OwnerFirstName = &v
	}
	if v := q.Get("owner_last_name"); v != "" {
		filter.OwnerLastName = &v
	}
	if v := q.Get("issuer_name"); v != "" {
		filter.IssuerName = &v
	}
	if v := q.Get("status"); v != "" {
		status := domain.PaymentStatus(v)
		filter.Status = &status
	}

	var ok bool
	if v := q.Get("issue_date"); v != "" {
		if filter.IssueDate, ok = parseOptionalDate(w, "issue_date", &v); !ok {
			return
		}
	}
	if v := q.Get("payment_date"); v != "" {
		if filter.PaymentDate, ok = parseOptionalDate(w, "payment_date", &v); !ok {
			return
		}
	}

	invoices, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(invoices, total, p.Page, p.PerPage))
}

// GetInvoice handles GET /api/v1/invoices/{id}
func (h *InvoiceHandler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// GetInvoiceByCode handles GET /api/v1/invoices/by-code/{code}
func (h *InvoiceHandler) GetInvoiceByCode(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetByIdentificationCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// CreateInvoice handles POST /api/v1/invoices
// The identification code is probed first so a duplicate answers 409 before
// anything is written.
func (h *InvoiceHandler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	issued, ok := parseDate(w, "issue_date", req.IssueDate)
	if !ok {
		return
	}

	_, err := h.service.GetByIdentificationCode(r.Context(), req.IdentificationCode)
	switch {
	case err == nil:
		httputil.WriteError(w, r, apperrors.AlreadyExists("invoice", "identification_code", req.IdentificationCode), h.logger)
		return
	case !errors.Is(err, domain.ErrInvoiceNotFound):
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	inv, err := h.service.Create(r.Context(), service.CreateInvoiceInput{
		OwnerFirstName:     req.OwnerFirstName,
		OwnerLastName:      req.OwnerLastName,
		IdentificationCode: req.IdentificationCode,
		IssuerName:         req.IssuerName,
		IssueDate:          issued,
		TotalPrice:         req.TotalPrice,
		PaymentStatus:      domain.PaymentStatus(req.PaymentStatus),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: inv})
}

// UpdateInvoice handles PUT /api/v1/invoices/{id}
func (h *InvoiceHandler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateInvoiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	issued, ok := parseOptionalDate(w, "issue_date", req.IssueDate)
	if !ok {
		return
	}

	inv, err := h.service.Update(r.Context(), id, service.UpdateInvoiceInput{
		OwnerFirstName: req.OwnerFirstName,
		OwnerLastName:  req.OwnerLastName,
		IssuerName:     req.IssuerName,
		IssueDate:      issued,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// DeleteInvoice handles DELETE /api/v1/invoices/{id}
func (h *InvoiceHandler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
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

// AssignProduct handles POST /api/v1/invoices/{id}/items
func (h *InvoiceHandler) AssignProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AssignProductRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	added, err := h.service.AssignProduct(r.Context(), id, req.ProductID, req.Count)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, httputil.Response{
		Data: AssignProductResponse{InvoiceID: id, ProductID: req.ProductID, Added: added},
	})
}

// RemoveLineItem handles DELETE /api/v1/invoices/{id}/items/{productId}
func (h *InvoiceHandler) RemoveLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	removed, err := h.service.RemoveLineItem(r.Context(), id, productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if !removed {
		httputil.WriteError(w, r, apperrors.NotFoundOf(domain.ErrLineItemNotFound, "line item", "product_id", productID), h.logger)
		return
	}

	noContent(w)
}

// GetTotal handles GET /api/v1/invoices/{id}/total
func (h *InvoiceHandler) GetTotal(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	total, err := h.service.ComputeTotal(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: InvoiceTotalResponse{InvoiceID: id, Total: total},
	})
}

// PayInvoice handles POST /api/v1/invoices/{id}/pay
func (h *InvoiceHandler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req PayInvoiceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	inv, err := h.service.Pay(r.Context(), id, req.Amount)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}

// CancelInvoice handles POST /api/v1/invoices/{id}/cancel
func (h *InvoiceHandler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	inv, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: inv})
}
