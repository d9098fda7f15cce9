package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/internal/cart"
	"github.com/dmoratto/storefront-backend/internal/identity"
	"github.com/dmoratto/storefront-backend/pkg/config"
	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
	"github.com/dmoratto/storefront-backend/pkg/outbox"
	"github.com/dmoratto/storefront-backend/pkg/rates"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type orderRepository interface {
	WithTx(tx *gorm.DB) *cart.Repository
	FindDraftByCustomer(ctx context.Context, customerID int64) (*models.Order, error)
	FindLatestConfirmedByCustomer(ctx context.Context, customerID int64) (*models.Order, error)
	UpdateAddresses(ctx context.Context, order *models.Order) error
	UpdateCarrier(ctx context.Context, orderID uuid.UUID, carrierRef string) error
}

type carrierProber interface {
	Quote(ctx context.Context, req rates.RateRequest) (int64, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the draft-to-confirmed order lifecycle.
type Service interface {
	View(ctx context.Context, customerID int64) (*models.Order, error)
	SetAddress(ctx context.Context, customerID int64, input AddressInput) (*models.Order, error)
	SelectCarrier(ctx context.Context, customerID int64, carrierRef string) (*models.Order, error)
	Confirm(ctx context.Context, customerID int64) (*models.Order, error)
}

type service struct {
	tx        txRunner
	carts     cart.Service
	orders    orderRepository
	carriers  carrierProber
	directory identity.Directory
	outbox    outboxPublisher
	cfg       config.CheckoutConfig
	now       func() time.Time
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Tx        txRunner
	Carts     cart.Service
	Orders    orderRepository
	Carriers  carrierProber
	Directory identity.Directory
	Outbox    outboxPublisher
	Config    config.CheckoutConfig
	Now       func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if params.Carriers == nil {
		return nil, fmt.Errorf("carrier prober is required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("identity directory is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		tx:        params.Tx,
		carts:     params.Carts,
		orders:    params.Orders,
		carriers:  params.Carriers,
		directory: params.Directory,
		outbox:    params.Outbox,
		cfg:       params.Config,
		now:       now,
	}, nil
}

// View returns the customer's draft with freshly recomputed totals, or nil
// when no draft exists.
func (s *service) View(ctx context.Context, customerID int64) (*models.Order, error) {
	order, err := s.carts.Get(ctx, customerID)
	if err != nil || order == nil {
		return order, err
	}
	if err := s.carts.Recompute(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// SetAddress assigns the billing/shipping pair to the open cart, creating
// the cart when the address arrives first. Shipping mirrors billing unless
// explicitly overridden.
func (s *service) SetAddress(ctx context.Context, customerID int64, input AddressInput) (*models.Order, error) {
	if missing := input.Billing.MissingFields(); len(missing) > 0 {
		return nil, incompleteAddress("billing", missing)
	}
	if input.Shipping != nil {
		if missing := input.Shipping.MissingFields(); len(missing) > 0 {
			return nil, incompleteAddress("shipping", missing)
		}
	}

	order, err := s.carts.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	billing := input.Billing
	order.BillingAddress = &billing
	if input.Shipping != nil {
		shipping := *input.Shipping
		order.ShippingAddress = &shipping
	} else {
		shipping := billing
		order.ShippingAddress = &shipping
	}

	if err := s.orders.UpdateAddresses(ctx, order); err != nil {
		if errors.Is(err, cart.ErrNotEditable) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not editable")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist addresses")
	}
	if err := s.carts.Recompute(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// SelectCarrier stores the delivery option after probing that the carrier
// can actually quote for the cart's current contents and address.
func (s *service) SelectCarrier(ctx context.Context, customerID int64, carrierRef string) (*models.Order, error) {
	carrierRef = strings.TrimSpace(carrierRef)
	if carrierRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "carrier reference is required")
	}

	order, err := s.carts.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no open cart")
	}
	if order.ShippingAddress == nil || !order.ShippingAddress.IsComplete() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a shipping address is required before selecting a carrier")
	}

	_, err = s.carriers.Quote(ctx, rates.RateRequest{
		CarrierRef:    carrierRef,
		Currency:      order.Currency.String(),
		SubtotalCents: order.SubtotalCents,
		Destination:   rates.AddrFromAddress(*order.ShippingAddress),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "carrier cannot quote for this cart").
			WithDetails(map[string]any{"carrier_ref": carrierRef})
	}

	if err := s.orders.UpdateCarrier(ctx, order.ID, carrierRef); err != nil {
		if errors.Is(err, cart.ErrNotEditable) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not editable")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist carrier")
	}
	order.CarrierRef = &carrierRef
	if err := s.carts.Recompute(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Confirm transitions the draft to confirmed. The transition is a
// compare-and-set on status, so double-submits resolve to a single
// confirmation, and retries after the draft is gone are answered with the
// already-confirmed order.
func (s *service) Confirm(ctx context.Context, customerID int64) (*models.Order, error) {
	order, err := s.orders.FindDraftByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.latestConfirmed(ctx, customerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load draft order")
	}

	if err := s.checkPreconditions(ctx, order); err != nil {
		return nil, err
	}

	// Freeze totals at confirmation time; a tax outage blocks confirm
	// rather than producing an order with silently missing tax.
	if err := s.carts.Recompute(ctx, order); err != nil {
		return nil, err
	}

	reference := NewReference(s.cfg.ReferencePrefix, order.ID)
	confirmedAt := s.now().UTC()

	var won bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		affected, err := repo.ConfirmIfDraft(ctx, order, reference, confirmedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "confirm order")
		}
		won = affected == 1
		if !won {
			return nil
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderConfirmed,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{CustomerID: customerID},
			Data: map[string]any{
				"order_id":     order.ID.String(),
				"reference":    reference,
				"customer_id":  customerID,
				"total_cents":  order.TotalCents,
				"currency":     order.Currency.String(),
				"confirmed_at": confirmedAt,
			},
			Version:    1,
			OccurredAt: confirmedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// A concurrent confirm got there first; return its result.
		return s.latestConfirmed(ctx, customerID)
	}

	order.Status = enums.OrderStatusConfirmed
	order.Reference = &reference
	order.ConfirmedAt = &confirmedAt
	return order, nil
}

func (s *service) latestConfirmed(ctx context.Context, customerID int64) (*models.Order, error) {
	order, err := s.orders.FindLatestConfirmedByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no open cart to confirm")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load confirmed order")
	}
	return order, nil
}

func (s *service) checkPreconditions(ctx context.Context, order *models.Order) error {
	failed := []string{}

	if len(order.Lines) == 0 {
		failed = append(failed, "cart has no lines")
	}
	if order.BillingAddress == nil || !order.BillingAddress.IsComplete() {
		failed = append(failed, "billing address is missing or incomplete")
	}

	if s.cfg.RequireCustomerAccount {
		record, err := s.directory.Lookup(ctx, order.CustomerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup customer")
		}
		if !record.Exists || record.Guest {
			failed = append(failed, "a customer account is required to confirm")
		}
	}

	if len(failed) > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout preconditions not met").
			WithDetails(map[string]any{"failed": failed})
	}
	return nil
}

func incompleteAddress(kind string, missing []string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s address is incomplete", kind)).
		WithDetails(map[string]any{"missing_fields": missing})
}
