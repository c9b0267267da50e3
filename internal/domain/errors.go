package domain

import (
	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

// Per-entity absence sentinels. Each wraps apperrors.ErrNotFound so callers
// can match either the entity or the kind.
var (
	ErrCategoryNotFound       = apperrors.Kind("category not found", apperrors.ErrNotFound)
	ErrParentCategoryNotFound = apperrors.Kind("parent category not found", apperrors.ErrNotFound)
	ErrProductNotFound        = apperrors.Kind("product not found", apperrors.ErrNotFound)
	ErrManufacturerNotFound   = apperrors.Kind("manufacturer not found", apperrors.ErrNotFound)
	ErrInvoiceNotFound        = apperrors.Kind("invoice not found", apperrors.ErrNotFound)
	ErrLineItemNotFound       = apperrors.Kind("line item not found", apperrors.ErrNotFound)
	ErrAssociationNotFound    = apperrors.Kind("association not found", apperrors.ErrNotFound)
	ErrUserNotFound           = apperrors.Kind("user not found", apperrors.ErrNotFound)
	ErrRoleNotFound           = apperrors.Kind("role not found", apperrors.ErrNotFound)
)

// Business rule sentinels. Each wraps apperrors.ErrGuard.
var (
	ErrCategoryHasChildren     = apperrors.Kind("category has children", apperrors.ErrGuard)
	ErrInvalidCategoryParent   = apperrors.Kind("invalid category parent", apperrors.ErrGuard)
	ErrManufacturerHasProducts = apperrors.Kind("manufacturer has products", apperrors.ErrGuard)
	ErrInsufficientInventory   = apperrors.Kind("insufficient inventory", apperrors.ErrGuard)
	ErrPaymentMismatch         = apperrors.Kind("payment amount mismatch", apperrors.ErrGuard)
	ErrInvoiceAlreadyPaid      = apperrors.Kind("invoice already paid", apperrors.ErrGuard)
	ErrInvoiceNotPayable       = apperrors.Kind("invoice not payable", apperrors.ErrGuard)
	ErrInvoiceNotDeletable     = apperrors.Kind("invoice not deletable", apperrors.ErrGuard)
	ErrProductInUse            = apperrors.Kind("product in use", apperrors.ErrGuard)
)
