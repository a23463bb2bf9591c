package billing

import (
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/golangci/golangci-billing/internal/shared/money"
)

const invoiceItemDateLayout = "Jan 2, 2006"

// Invoice is a read-only view over a remote invoice.
type Invoice struct {
	invoice   *paymentprovider.Invoice
	customer  Customer
	formatter *money.Formatter
}

func (b Billable) newInvoice(inv *paymentprovider.Invoice) *Invoice {
	return &Invoice{
		invoice:   inv,
		customer:  b.customer,
		formatter: b.svc.cfg.Currency,
	}
}

func (i Invoice) AsRemoteInvoice() *paymentprovider.Invoice {
	return i.invoice
}

func (i Invoice) ID() string {
	return i.invoice.ID
}

func (i Invoice) Paid() bool {
	return i.invoice.Paid
}

// Date returns the creation time in loc, nil loc means UTC.
func (i Invoice) Date(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}

	return i.invoice.Created.In(loc)
}

// RawTotal is the total with the starting balance applied, never negative.
func (i Invoice) RawTotal() int64 {
	return maxZero(i.invoice.Total + i.invoice.StartingBalance)
}

func (i Invoice) Total() string {
	return i.formatter.Format(i.RawTotal())
}

func (i Invoice) Subtotal() string {
	return i.formatter.Format(maxZero(i.invoice.Subtotal - i.invoice.StartingBalance))
}

func (i Invoice) HasStartingBalance() bool {
	return i.invoice.StartingBalance > 0
}

func (i Invoice) StartingBalance() string {
	return i.formatter.Format(i.invoice.StartingBalance)
}

func (i Invoice) HasDiscount() bool {
	return i.invoice.Subtotal > 0 && i.invoice.Subtotal != i.invoice.Total && i.invoice.Discount != nil
}

func (i Invoice) Discount() string {
	return i.formatter.Format(i.invoice.Subtotal - i.invoice.Total)
}

func (i Invoice) coupon() *paymentprovider.Coupon {
	if i.invoice.Discount == nil {
		return nil
	}

	return i.invoice.Discount.Coupon
}

// Coupon returns the applied coupon id or "".
func (i Invoice) Coupon() string {
	if c := i.coupon(); c != nil {
		return c.ID
	}

	return ""
}

func (i Invoice) DiscountIsPercentage() bool {
	c := i.coupon()
	return c != nil && c.ID != "" && c.PercentOff != 0
}

func (i Invoice) PercentOff() float64 {
	if c := i.coupon(); c != nil {
		return c.PercentOff
	}

	return 0
}

func (i Invoice) AmountOff() string {
	if c := i.coupon(); c != nil {
		return i.formatter.Format(c.AmountOff)
	}

	return i.formatter.Format(0)
}

func (i Invoice) InvoiceItems() []InvoiceItem {
	return i.InvoiceItemsByType(paymentprovider.InvoiceLineTypeInvoiceItem)
}

func (i Invoice) Subscriptions() []InvoiceItem {
	return i.InvoiceItemsByType(paymentprovider.InvoiceLineTypeSubscription)
}

func (i Invoice) InvoiceItemsByType(lineType string) []InvoiceItem {
	var ret []InvoiceItem
	for idx := range i.invoice.Lines {
		if i.invoice.Lines[idx].Type == lineType {
			ret = append(ret, InvoiceItem{
				line:      &i.invoice.Lines[idx],
				formatter: i.formatter,
			})
		}
	}

	return ret
}

type InvoiceItem struct {
	line      *paymentprovider.InvoiceLine
	formatter *money.Formatter
}

func (ii InvoiceItem) Line() *paymentprovider.InvoiceLine {
	return ii.line
}

func (ii InvoiceItem) Total() string {
	return ii.formatter.Format(ii.line.Amount)
}

func (ii InvoiceItem) IsSubscription() bool {
	return ii.line.Type == paymentprovider.InvoiceLineTypeSubscription
}

// StartTime is zero for non-subscription lines.
func (ii InvoiceItem) StartTime() time.Time {
	if !ii.IsSubscription() {
		return time.Time{}
	}

	return ii.line.PeriodStart.UTC()
}

func (ii InvoiceItem) EndTime() time.Time {
	if !ii.IsSubscription() {
		return time.Time{}
	}

	return ii.line.PeriodEnd.UTC()
}

// StartDate is "" for non-subscription lines.
func (ii InvoiceItem) StartDate() string {
	if !ii.IsSubscription() {
		return ""
	}

	return ii.StartTime().Format(invoiceItemDateLayout)
}

func (ii InvoiceItem) EndDate() string {
	if !ii.IsSubscription() {
		return ""
	}

	return ii.EndTime().Format(invoiceItemDateLayout)
}

func maxZero(v int64) int64 {
	if v < 0 {
		return 0
	}

	return v
}

func (i Invoice) Customer() Customer {
	return i.customer
}
