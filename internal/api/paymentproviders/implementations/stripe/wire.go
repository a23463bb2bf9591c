package stripe

import (
	"encoding/json"
	"time"

	"github.com/golangci/golangci-billing/internal/api/paymentproviders/paymentprovider"
	"github.com/pkg/errors"
)

// Resources are decoded from the raw API response into the structs below
// instead of being read from SDK structs: field placement differs between
// API versions (e.g. current_period_end moved to subscription items).

// ref is an expandable field: either an id string or an object with an id.
type ref struct {
	ID string
}

func (r *ref) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

func unixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}

	t := time.Unix(ts, 0).UTC()
	return &t
}

func decodeFields(raw []byte) paymentprovider.Fields {
	var fields paymentprovider.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

type wireCard struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Brand  string `json:"brand"`
	Last4  string `json:"last4"`
	Card   *struct {
		Brand string `json:"brand"`
		Last4 string `json:"last4"`
	} `json:"card"`
}

type wireCustomer struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DefaultSource ref    `json:"default_source"`
	Sources       *struct {
		Data []wireCard `json:"data"`
	} `json:"sources"`
}

func decodeCustomer(raw []byte) (*paymentprovider.Customer, error) {
	var w wireCustomer
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode customer")
	}

	c := &paymentprovider.Customer{
		ID:            w.ID,
		Email:         w.Email,
		DefaultSource: w.DefaultSource.ID,
		Fields:        decodeFields(raw),
	}
	if w.Sources != nil {
		for _, s := range w.Sources.Data {
			card := paymentprovider.Card{ID: s.ID, Brand: s.Brand, Last4: s.Last4}
			if s.Card != nil { // payment method shaped source
				card.Brand, card.Last4 = s.Card.Brand, s.Card.Last4
			}
			c.Sources = append(c.Sources, card)
		}
	}

	return c, nil
}

type wireSubscriptionItem struct {
	ID               string `json:"id"`
	Price            ref    `json:"price"`
	Plan             ref    `json:"plan"`
	Quantity         int64  `json:"quantity"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

type wireSubscription struct {
	ID                string            `json:"id"`
	Customer          ref               `json:"customer"`
	Status            string            `json:"status"`
	Plan              ref               `json:"plan"`
	Quantity          int64             `json:"quantity"`
	TrialEnd          int64             `json:"trial_end"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []wireSubscriptionItem `json:"data"`
	} `json:"items"`
}

func decodeSubscription(raw []byte) (*paymentprovider.Subscription, error) {
	var w wireSubscription
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode subscription")
	}

	s := &paymentprovider.Subscription{
		ID:                w.ID,
		CustomerID:        w.Customer.ID,
		Status:            paymentprovider.SubscriptionStatus(w.Status),
		PlanID:            w.Plan.ID,
		Quantity:          w.Quantity,
		TrialEnd:          unixTime(w.TrialEnd),
		CurrentPeriodEnd:  unixTime(w.CurrentPeriodEnd),
		CancelAtPeriodEnd: w.CancelAtPeriodEnd,
		Metadata:          w.Metadata,
		Fields:            decodeFields(raw),
	}

	for i, item := range w.Items.Data {
		planID := item.Price.ID
		if planID == "" {
			planID = item.Plan.ID
		}
		s.Items = append(s.Items, paymentprovider.SubscriptionItem{
			ID:       item.ID,
			PlanID:   planID,
			Quantity: item.Quantity,
		})

		if i != 0 {
			continue
		}
		if s.PlanID == "" {
			s.PlanID = planID
		}
		if s.Quantity == 0 {
			s.Quantity = item.Quantity
		}
		if s.CurrentPeriodEnd == nil {
			s.CurrentPeriodEnd = unixTime(item.CurrentPeriodEnd)
		}
	}

	return s, nil
}

type wireCoupon struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	PercentOff float64 `json:"percent_off"`
	AmountOff  int64   `json:"amount_off"`
}

type wireDiscount struct {
	Coupon *wireCoupon `json:"coupon"`
	Source *struct {
		Coupon *wireCoupon `json:"coupon"`
	} `json:"source"`
}

func (d wireDiscount) toDiscount() *paymentprovider.Discount {
	c := d.Coupon
	if c == nil && d.Source != nil {
		c = d.Source.Coupon
	}
	if c == nil {
		return &paymentprovider.Discount{}
	}

	return &paymentprovider.Discount{
		Coupon: &paymentprovider.Coupon{
			ID:         c.ID,
			Name:       c.Name,
			PercentOff: c.PercentOff,
			AmountOff:  c.AmountOff,
		},
	}
}

type wireInvoiceLine struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Quantity    int64  `json:"quantity"`
	Plan        ref    `json:"plan"`
	Price       ref    `json:"price"`
	Parent      *struct {
		Type string `json:"type"`
	} `json:"parent"`
	Period struct {
		Start int64 `json:"start"`
		End   int64 `json:"end"`
	} `json:"period"`
}

func (l wireInvoiceLine) lineType() string {
	if l.Type != "" {
		return l.Type
	}
	if l.Parent == nil {
		return ""
	}

	switch l.Parent.Type {
	case "subscription_item_details":
		return paymentprovider.InvoiceLineTypeSubscription
	case "invoice_item_details":
		return paymentprovider.InvoiceLineTypeInvoiceItem
	}
	return l.Parent.Type
}

func (l wireInvoiceLine) toLine() paymentprovider.InvoiceLine {
	planID := l.Plan.ID
	if planID == "" {
		planID = l.Price.ID
	}

	return paymentprovider.InvoiceLine{
		ID:          l.ID,
		Type:        l.lineType(),
		Amount:      l.Amount,
		Currency:    l.Currency,
		Description: l.Description,
		Quantity:    l.Quantity,
		PlanID:      planID,
		PeriodStart: time.Unix(l.Period.Start, 0).UTC(),
		PeriodEnd:   time.Unix(l.Period.End, 0).UTC(),
	}
}

type wireInvoice struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	Customer        ref             `json:"customer"`
	Status          string          `json:"status"`
	Paid            *bool           `json:"paid"`
	Currency        string          `json:"currency"`
	Total           int64           `json:"total"`
	Subtotal        int64           `json:"subtotal"`
	StartingBalance int64           `json:"starting_balance"`
	Created         int64           `json:"created"`
	Discount        *wireDiscount   `json:"discount"`
	Discounts       json.RawMessage `json:"discounts"`
	Lines           struct {
		Data []wireInvoiceLine `json:"data"`
	} `json:"lines"`
}

func decodeInvoice(raw []byte) (*paymentprovider.Invoice, error) {
	var w wireInvoice
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode invoice")
	}

	inv := &paymentprovider.Invoice{
		ID:              w.ID,
		Number:          w.Number,
		CustomerID:      w.Customer.ID,
		Status:          w.Status,
		Paid:            w.Status == "paid",
		Currency:        w.Currency,
		Total:           w.Total,
		Subtotal:        w.Subtotal,
		StartingBalance: w.StartingBalance,
		Created:         time.Unix(w.Created, 0).UTC(),
		Fields:          decodeFields(raw),
	}
	if w.Paid != nil {
		inv.Paid = *w.Paid
	}

	if w.Discount != nil {
		inv.Discount = w.Discount.toDiscount()
	} else if len(w.Discounts) != 0 {
		// not expanded discounts are plain ids and carry no coupon
		var discounts []wireDiscount
		if err := json.Unmarshal(w.Discounts, &discounts); err == nil && len(discounts) != 0 {
			inv.Discount = discounts[0].toDiscount()
		}
	}

	for _, l := range w.Lines.Data {
		inv.Lines = append(inv.Lines, l.toLine())
	}

	return inv, nil
}

type wireEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func decodeEvent(raw []byte) (*paymentprovider.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(err, "failed to decode event")
	}

	return &paymentprovider.Event{
		ID:      w.ID,
		Type:    w.Type,
		Created: time.Unix(w.Created, 0).UTC(),
		Object:  w.Data.Object,
	}, nil
}
