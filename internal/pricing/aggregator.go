package pricing

import (
	"context"
	"fmt"

	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
	"github.com/dmoratto/storefront-backend/pkg/logger"
	"github.com/dmoratto/storefront-backend/pkg/rates"
	"github.com/dmoratto/storefront-backend/pkg/tax"
)

// Totals is the derived money snapshot for an order. It is recomputed from
// the order's current lines and carrier after every mutation and never
// cached across one.
type Totals struct {
	SubtotalCents   int64
	TaxCents        int64
	DeliveryCents   int64
	TotalCents      int64
	Currency        enums.Currency
	DeliveryWarning *string
}

// TaxSource quotes tax for a cart snapshot. Failures are fatal to the
// recompute: totals must never silently omit tax.
type TaxSource interface {
	Quote(ctx context.Context, req tax.QuoteRequest) (int64, error)
}

// RateSource quotes delivery for the selected carrier. Failures degrade to a
// zero delivery amount plus a warning so an unreachable rate service cannot
// block cart viewing.
type RateSource interface {
	Quote(ctx context.Context, req rates.RateRequest) (int64, error)
}

// Aggregator combines line math with the external tax and carrier quotes.
type Aggregator struct {
	taxes    TaxSource
	carriers RateSource
	logg     *logger.Logger
}

// NewAggregator constructs the totals aggregator.
func NewAggregator(taxes TaxSource, carriers RateSource, logg *logger.Logger) (*Aggregator, error) {
	if taxes == nil {
		return nil, fmt.Errorf("tax source is required")
	}
	if carriers == nil {
		return nil, fmt.Errorf("rate source is required")
	}
	return &Aggregator{taxes: taxes, carriers: carriers, logg: logg}, nil
}

// Recompute derives fresh totals from the order's lines, addresses, and
// selected carrier. Tax is only quoted once a billing address exists;
// delivery only once a carrier is selected.
func (a *Aggregator) Recompute(ctx context.Context, order *models.Order) (Totals, error) {
	totals := Totals{Currency: order.Currency}

	for _, line := range order.Lines {
		totals.SubtotalCents += line.UnitPriceCents * int64(line.Quantity)
	}

	if order.BillingAddress != nil && order.BillingAddress.IsComplete() && len(order.Lines) > 0 {
		taxCents, err := a.taxes.Quote(ctx, a.taxRequest(order, totals.SubtotalCents))
		if err != nil {
			return Totals{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quote tax")
		}
		totals.TaxCents = taxCents
	}

	if order.CarrierRef != nil && order.ShippingAddress != nil && order.ShippingAddress.IsComplete() {
		deliveryCents, err := a.carriers.Quote(ctx, a.rateRequest(order, totals.SubtotalCents))
		if err != nil {
			warning := "delivery price unavailable for selected carrier"
			totals.DeliveryWarning = &warning
			totals.DeliveryCents = 0
			if a.logg != nil {
				a.logg.Warn(a.logg.WithOrderID(ctx, order.ID.String()), "carrier rate quote failed: "+err.Error())
			}
		} else {
			totals.DeliveryCents = deliveryCents
		}
	}

	totals.TotalCents = totals.SubtotalCents + totals.TaxCents + totals.DeliveryCents
	return totals, nil
}

func (a *Aggregator) taxRequest(order *models.Order, subtotalCents int64) tax.QuoteRequest {
	req := tax.QuoteRequest{
		Currency:      order.Currency.String(),
		SubtotalCents: subtotalCents,
		Address:       tax.AddrFromAddress(*order.BillingAddress),
	}
	for _, line := range order.Lines {
		req.Lines = append(req.Lines, tax.QuoteLine{
			ProductRef:     line.ProductRef,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return req
}

func (a *Aggregator) rateRequest(order *models.Order, subtotalCents int64) rates.RateRequest {
	return rates.RateRequest{
		CarrierRef:    *order.CarrierRef,
		Currency:      order.Currency.String(),
		SubtotalCents: subtotalCents,
		Destination:   rates.AddrFromAddress(*order.ShippingAddress),
	}
}

// Apply copies a totals snapshot onto the order model.
func (t Totals) Apply(order *models.Order) {
	order.SubtotalCents = t.SubtotalCents
	order.TaxCents = t.TaxCents
	order.DeliveryCents = t.DeliveryCents
	order.TotalCents = t.TotalCents
	order.DeliveryWarning = t.DeliveryWarning
}
