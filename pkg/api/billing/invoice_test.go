package billing

import (
	"testing"
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/stretchr/testify/assert"
)

func newTestInvoice(t *testing.T, inv *paymentprovider.Invoice) *Invoice {
	return newTestEnv(t).billable().newInvoice(inv)
}

func TestInvoiceTotals(t *testing.T) {
	inv := newTestInvoice(t, &paymentprovider.Invoice{
		Total:           1500,
		Subtotal:        2000,
		StartingBalance: -500,
		Discount: &paymentprovider.Discount{
			Coupon: &paymentprovider.Coupon{ID: "OFF25", PercentOff: 25},
		},
	})

	assert.Equal(t, int64(1000), inv.RawTotal())
	assert.Equal(t, "$10.00", inv.Total())
	assert.Equal(t, "$25.00", inv.Subtotal())
	assert.False(t, inv.HasStartingBalance())
	assert.True(t, inv.HasDiscount())
	assert.Equal(t, "$5.00", inv.Discount())
	assert.Equal(t, "OFF25", inv.Coupon())
	assert.True(t, inv.DiscountIsPercentage())
	assert.Equal(t, 25.0, inv.PercentOff())
	assert.Equal(t, "$0.00", inv.AmountOff())
}

func TestInvoiceTotalNeverNegative(t *testing.T) {
	inv := newTestInvoice(t, &paymentprovider.Invoice{
		Total:           500,
		Subtotal:        500,
		StartingBalance: -900,
	})

	assert.Equal(t, int64(0), inv.RawTotal())
	assert.False(t, inv.HasDiscount())
	assert.Empty(t, inv.Coupon())
	assert.False(t, inv.DiscountIsPercentage())
	assert.Equal(t, "$0.00", inv.AmountOff())

	withBalance := newTestInvoice(t, &paymentprovider.Invoice{Subtotal: 500, StartingBalance: 700})
	assert.True(t, withBalance.HasStartingBalance())
	assert.Equal(t, "$0.00", withBalance.Subtotal())
	assert.Equal(t, "$7.00", withBalance.StartingBalance())
}

func TestInvoiceItemsByType(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	inv := newTestInvoice(t, &paymentprovider.Invoice{
		Created: start,
		Lines: []paymentprovider.InvoiceLine{
			{ID: "il_1", Type: paymentprovider.InvoiceLineTypeSubscription, Amount: 2000,
				PeriodStart: start, PeriodEnd: start.AddDate(0, 1, 0)},
			{ID: "il_2", Type: paymentprovider.InvoiceLineTypeInvoiceItem, Amount: 500,
				PeriodStart: start, PeriodEnd: start},
		},
	})

	subs := inv.Subscriptions()
	if assert.Len(t, subs, 1) {
		assert.True(t, subs[0].IsSubscription())
		assert.Equal(t, "$20.00", subs[0].Total())
		assert.Equal(t, "Mar 1, 2026", subs[0].StartDate())
		assert.Equal(t, "Apr 1, 2026", subs[0].EndDate())
	}

	items := inv.InvoiceItems()
	if assert.Len(t, items, 1) {
		assert.False(t, items[0].IsSubscription())
		assert.Empty(t, items[0].StartDate())
		assert.True(t, items[0].StartTime().IsZero())
	}

	loc := time.FixedZone("UTC+3", 3*3600)
	assert.Equal(t, 3, inv.Date(loc).Hour())
}
