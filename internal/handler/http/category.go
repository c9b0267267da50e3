package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/backoffice/internal/domain"
	"github.com/utafrali/backoffice/internal/service"
	"github.com/utafrali/backoffice/pkg/httputil"
)

// CategoryHandler handles HTTP requests for category endpoints.
type CategoryHandler struct {
	service service.CategoryManager
	logger  *slog.Logger
}

// NewCategoryHandler creates a new category HTTP handler.
func NewCategoryHandler(svc service.CategoryManager, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// InsertCategoryRequest is the JSON request body for inserting a category.
// ParentName "Root" inserts a root category.
type InsertCategoryRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=40"`
	Kind       string `json:"kind" validate:"required,oneof=Parent Child"`
	ParentName string `json:"parent_name" validate:"required,min=1,max=40"`
}

// UpdateCategoryRequest is the JSON request body for updating a category.
// An empty ParentName keeps the current parent.
type UpdateCategoryRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=40"`
	Kind       string `json:"kind" validate:"required,oneof=Parent Child"`
	ParentName string `json:"parent_name" validate:"omitempty,max=40"`
}

// --- Handlers ---

// ListCategories handles GET /api/v1/categories
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.GetAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: views})
}

// CategoryTree handles GET /api/v1/categories/tree
func (h *CategoryHandler) CategoryTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if tree == nil {
		tree = []*domain.CategoryNode{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tree})
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	view, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// GetCategoryByName handles GET /api/v1/categories/by-name/{name}
func (h *CategoryHandler) GetCategoryByName(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// GetParent handles GET /api/v1/categories/{id}/parent
func (h *CategoryHandler) GetParent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	parent, err := h.service.GetParent(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: parent})
}

// ListChildren handles GET /api/v1/categories/{id}/children
func (h *CategoryHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	children, err := h.service.ListChildren(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if children == nil {
		children = []domain.CategoryView{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: children})
}

// InsertCategory handles POST /api/v1/categories
func (h *CategoryHandler) InsertCategory(w http.ResponseWriter, r *http.Request) {
	var req InsertCategoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	view, err := h.service.Insert(r.Context(), service.InsertCategoryInput{
		Name:       req.Name,
		Kind:       domain.CategoryKind(req.Kind),
		ParentName: req.ParentName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: view})
}

// UpdateCategory handles PUT /api/v1/categories/{id}
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateCategoryRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	view, err := h.service.Update(r.Context(), id, service.UpdateCategoryInput{
		Name:       req.Name,
		Kind:       domain.CategoryKind(req.Kind),
		ParentName: req.ParentName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: view})
}

// DeleteCategory handles DELETE /api/v1/categories/{id}
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
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
