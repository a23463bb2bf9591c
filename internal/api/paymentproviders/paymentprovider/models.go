package paymentprovider

import (
	"encoding/json"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

const (
	InvoiceLineTypeSubscription = "subscription"
	InvoiceLineTypeInvoiceItem  = "invoiceitem"
)

// Fields is the escape hatch for resource attributes that aren't modeled.
type Fields map[string]interface{}

type Card struct {
	ID    string
	Brand string
	Last4 string
}

type Customer struct {
	ID            string
	Email         string
	DefaultSource string
	Sources       []Card

	Fields Fields
}

func (c Customer) DefaultCard() *Card {
	for i := range c.Sources {
		if c.Sources[i].ID == c.DefaultSource {
			return &c.Sources[i]
		}
	}

	return nil
}

type SubscriptionItem struct {
	ID       string
	PlanID   string
	Quantity int64
}

type Subscription struct {
	ID                string
	CustomerID        string
	Status            SubscriptionStatus
	PlanID            string
	Quantity          int64
	Items             []SubscriptionItem
	TrialEnd          *time.Time
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	Metadata          map[string]string

	Fields Fields
}

// PrimaryItemID returns the item whose plan a swap replaces in place.
func (s Subscription) PrimaryItemID() string {
	if len(s.Items) == 0 {
		return ""
	}

	return s.Items[0].ID
}

type Coupon struct {
	ID         string
	Name       string
	PercentOff float64
	AmountOff  int64
}

type Discount struct {
	Coupon *Coupon
}

type InvoiceLine struct {
	ID          string
	Type        string
	Amount      int64
	Currency    string
	Description string
	Quantity    int64
	PlanID      string
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type Invoice struct {
	ID              string
	Number          string
	CustomerID      string
	Status          string
	Paid            bool
	Currency        string
	Total           int64
	Subtotal        int64
	StartingBalance int64
	Created         time.Time
	Discount        *Discount
	Lines           []InvoiceLine

	Fields Fields
}

type Charge struct {
	ID       string
	Amount   int64
	Currency string
	Paid     bool
	Status   string
}

type Refund struct {
	ID       string
	ChargeID string
	Amount   int64
	Status   string
}

type Event struct {
	ID      string
	Type    string
	Created time.Time

	// Object is the raw data.object of the event
	Object json.RawMessage
}

// Moment is either "now" or a fixed time, as accepted by trial end and
// billing cycle anchor parameters.
type Moment struct {
	Now bool
	At  time.Time
}

func Now() *Moment {
	return &Moment{Now: true}
}

func At(t time.Time) *Moment {
	return &Moment{At: t}
}

type CustomerParams struct {
	Email       string
	Description string
	Source      string
	Coupon      string
	Metadata    map[string]string
}

// SubscriptionParams holds create options, zero values are not sent.
type SubscriptionParams struct {
	CustomerID string
	PlanID     string
	Quantity   int64
	Coupon     string
	TrialEnd   *Moment
	TaxPercent float64
	Metadata   map[string]string
}

// SubscriptionUpdateParams holds update options, nil and zero values
// leave the remote field unchanged.
type SubscriptionUpdateParams struct {
	ItemID             string
	PlanID             string
	Quantity           int64
	Prorate            *bool
	TrialEnd           *Moment
	BillingCycleAnchor *Moment
	CancelAtPeriodEnd  *bool
}

type InvoiceListParams struct {
	Limit  int64
	Status string
}

type InvoiceItemParams struct {
	CustomerID  string
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

type ChargeParams struct {
	Amount      int64
	Currency    string
	CustomerID  string
	Source      string
	Description string
	Metadata    map[string]string
}

type RefundParams struct {
	ChargeID string
	Amount   int64
	Reason   string
}
