package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/backoffice/pkg/errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTotal(t *testing.T) {
	items := []LineItem{
		{ProductID: "a", Count: 3, UnitPrice: dec("10")},
		{ProductID: "b", Count: 2, UnitPrice: dec("5")},
	}
	assert.True(t, dec("40").Equal(ComputeTotal(items)))
	assert.True(t, decimal.Zero.Equal(ComputeTotal(nil)))
}

func TestComputeTotal_RoundsEachLine(t *testing.T) {
	items := []LineItem{{Count: 3, UnitPrice: dec("0.335")}}
	assert.Equal(t, "1.01", ComputeTotal(items).StringFixed(2))
}

func TestInvoice_CheckPayable(t *testing.T) {
	tests := []struct {
		name     string
		status   PaymentStatus
		tendered string
		want     error
	}{
		{"exact amount", PaymentStatusPending, "40.00", nil},
		{"exact amount different scale", PaymentStatusPending, "40", nil},
		{"short", PaymentStatusPending, "39.99", ErrPaymentMismatch},
		{"over", PaymentStatusPending, "40.01", ErrPaymentMismatch},
		{"half a cent short", PaymentStatusPending, "39.995", ErrPaymentMismatch},
		{"half a cent over", PaymentStatusPending, "40.004", ErrPaymentMismatch},
		{"already paid", PaymentStatusPayed, "40", ErrInvoiceAlreadyPaid},
		{"cancelled", PaymentStatusCancelled, "40", ErrInvoiceNotPayable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &Invoice{PaymentStatus: tt.status}
			err := inv.CheckPayable(dec(tt.tendered), dec("40"))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))
			assert.True(t, errors.Is(err, apperrors.ErrGuard))
		})
	}
}

func TestInvoice_CheckDeletable(t *testing.T) {
	assert.NoError(t, (&Invoice{PaymentStatus: PaymentStatusPending}).CheckDeletable())
	assert.NoError(t, (&Invoice{PaymentStatus: PaymentStatusPayed}).CheckDeletable())
	assert.ErrorIs(t, (&Invoice{PaymentStatus: PaymentStatusCancelled}).CheckDeletable(), ErrInvoiceNotDeletable)
}

func TestInvoice_CheckCancellable(t *testing.T) {
	assert.NoError(t, (&Invoice{PaymentStatus: PaymentStatusPending}).CheckCancellable())
	assert.Error(t, (&Invoice{PaymentStatus: PaymentStatusPayed}).CheckCancellable())
	assert.Error(t, (&Invoice{PaymentStatus: PaymentStatusCancelled}).CheckCancellable())
}

func TestInvoice_MarkPaid(t *testing.T) {
	inv := &Invoice{PaymentStatus: PaymentStatusPending}
	inv.MarkPaid(time.Date(2026, 3, 4, 17, 30, 0, 0, time.UTC))

	assert.Equal(t, PaymentStatusPayed, inv.PaymentStatus)
	require.NotNil(t, inv.PaymentDate)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), *inv.PaymentDate)
}

func TestPaymentStatus_Valid(t *testing.T) {
	assert.True(t, PaymentStatusPayed.Valid())
	assert.False(t, PaymentStatus("Paid").Valid())
}

func TestComputeAvailability(t *testing.T) {
	produced := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.True(t, ComputeAvailability(produced, produced.AddDate(1, 0, 0), dec("0.5")))
	assert.False(t, ComputeAvailability(produced, produced.AddDate(1, 0, 0), decimal.Zero))
	assert.False(t, ComputeAvailability(produced, produced, dec("10")))
	assert.False(t, ComputeAvailability(produced, produced.AddDate(0, 0, -1), dec("10")))
}

func TestUser_TokenRoles(t *testing.T) {
	assert.Equal(t, []string{RoleCustomer}, (&User{}).TokenRoles())
	assert.Equal(t, []string{RoleCustomer, RoleAdmin}, (&User{Roles: []string{RoleCustomer, RoleAdmin}}).TokenRoles())
}

func TestSentinels_WrapKinds(t *testing.T) {
	assert.ErrorIs(t, ErrCategoryNotFound, apperrors.ErrNotFound)
	assert.ErrorIs(t, ErrParentCategoryNotFound, apperrors.ErrNotFound)
	assert.NotErrorIs(t, ErrCategoryNotFound, ErrParentCategoryNotFound)
	assert.ErrorIs(t, ErrCategoryHasChildren, apperrors.ErrGuard)
}

func TestFitsInventoryScale(t *testing.T) {
	assert.True(t, FitsInventoryScale(dec("12")))
	assert.True(t, FitsInventoryScale(dec("1.234")))
	assert.True(t, FitsInventoryScale(dec("0.5000")))
	assert.False(t, FitsInventoryScale(dec("0.0004")))
	assert.False(t, FitsInventoryScale(dec("-1.2345")))
}
