package domain

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

// PaymentStatus is the settlement state of an invoice.
type PaymentStatus string

// Payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusPayed     PaymentStatus = "Payed"
	PaymentStatusCancelled PaymentStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPayed, PaymentStatusCancelled:
		return true
	}
	return false
}

// Invoice is an order document. TotalPrice is the stored snapshot of the
// line item sum; ComputeTotal is the source of truth.
type Invoice struct {
	ID                 string          `json:"id"`
	OwnerFirstName     string          `json:"owner_first_name"`
	OwnerLastName      string          `json:"owner_last_name"`
	IdentificationCode string          `json:"identification_code"`
	IssuerName         string          `json:"issuer_name"`
	IssueDate          time.Time       `json:"issue_date"`
	PaymentDate        *time.Time      `json:"payment_date,omitempty"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	Items              []LineItem      `json:"items"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LineItem is one product on an invoice. UnitPrice is the product's current
// price at read time, not a price captured when the line was added.
type LineItem struct {
	InvoiceID   string          `json:"invoice_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Count       int             `json:"count"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Quantity returns Count as a decimal for inventory arithmetic.
func (li LineItem) Quantity() decimal.Decimal {
	return decimal.NewFromInt(int64(li.Count))
}

// LineTotal is Count × UnitPrice.
func (li LineItem) LineTotal() decimal.Decimal {
	return Money(li.UnitPrice.Mul(li.Quantity()))
}

// ComputeTotal sums the line totals of items.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, li := range items {
		total = total.Add(li.LineTotal())
	}
	return Money(total)
}

// CheckPayable returns a guard error unless inv can be settled for tendered
// against the live total. The tender must equal the total exactly.
func (inv *Invoice) CheckPayable(tendered, total decimal.Decimal) error {
	switch inv.PaymentStatus {
	case PaymentStatusPayed:
		return apperrors.Guard(ErrInvoiceAlreadyPaid, "invoice is already paid")
	case PaymentStatusCancelled:
		return apperrors.Guard(ErrInvoiceNotPayable, "a cancelled invoice cannot be paid")
	}
	// The tender is compared as given; only the total is a rounded sum.
	if !tendered.Equal(Money(total)) {
		return apperrors.Guard(ErrPaymentMismatch,
			"tendered amount "+tendered.String()+" does not match invoice total "+Money(total).StringFixed(MoneyPlaces))
	}
	return nil
}

// CheckDeletable returns a guard error unless inv may be deleted. Pending and
// Payed invoices are deletable; Cancelled ones are kept.
func (inv *Invoice) CheckDeletable() error {
	if inv.PaymentStatus == PaymentStatusPending || inv.PaymentStatus == PaymentStatusPayed {
		return nil
	}
	return apperrors.Guard(ErrInvoiceNotDeletable, "only pending or paid invoices can be deleted")
}

// CheckCancellable returns a guard error unless inv is Pending.
func (inv *Invoice) CheckCancellable() error {
	if inv.PaymentStatus == PaymentStatusPending {
		return nil
	}
	return apperrors.Guard(ErrInvoiceNotPayable, "only pending invoices can be cancelled")
}

// MarkPaid moves inv to Payed and stamps the payment date (UTC day).
func (inv *Invoice) MarkPaid(now time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	inv.PaymentStatus = PaymentStatusPayed
	inv.PaymentDate = &day
}
