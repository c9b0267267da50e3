package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/utafrali/backoffice/internal/domain"
)

// Payment rejection reasons.
const (
	rejectMismatch     = "mismatch"
	rejectAlreadyPaid  = "already_paid"
	rejectNotPayable   = "not_payable"
	rejectInsufficient = "insufficient_inventory"
	rejectError        = "error"
)

// InvoiceMetrics counts invoice payments.
type InvoiceMetrics struct {
	paid       prometheus.Counter
	rejected   *prometheus.CounterVec
	paidAmount prometheus.Counter
}

// NewInvoiceMetrics creates the payment counters. They are registered with
// reg when it is not nil.
func NewInvoiceMetrics(reg prometheus.Registerer) *InvoiceMetrics {
	m := &InvoiceMetrics{
		paid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_invoice_payments_total",
			Help: "Total number of invoices paid",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_invoice_payment_rejections_total",
			Help: "Total number of rejected invoice payments by reason",
		}, []string{"reason"}),
		paidAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "backoffice_invoice_paid_amount_total",
			Help: "Sum of settled invoice totals",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.paid, m.rejected, m.paidAmount)
	}
	return m
}

func (m *InvoiceMetrics) recordPaid(total decimal.Decimal) {
	m.paid.Inc()
	m.paidAmount.Add(total.InexactFloat64())
}

func (m *InvoiceMetrics) recordRejected(err error) {
	m.rejected.WithLabelValues(rejectReason(err)).Inc()
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPaymentMismatch):
		return rejectMismatch
	case errors.Is(err, domain.ErrInvoiceAlreadyPaid):
		return rejectAlreadyPaid
	case errors.Is(err, domain.ErrInvoiceNotPayable):
		return rejectNotPayable
	case errors.Is(err, domain.ErrInsufficientInventory):
		return rejectInsufficient
	default:
		return rejectError
	}
}
