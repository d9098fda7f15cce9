package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/internal/catalog"
	"github.com/dmoratto/storefront-backend/internal/pricing"
	"github.com/dmoratto/storefront-backend/pkg/db"
	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
)

const draftIndexName = "idx_orders_one_draft_per_customer"

// Service defines the cart operations exposed to controllers and checkout.
type Service interface {
	Get(ctx context.Context, customerID int64) (*models.Order, error)
	GetOrCreate(ctx context.Context, customerID int64) (*models.Order, error)
	AddLine(ctx context.Context, customerID int64, productRef string, qty int) (*models.Order, error)
	SetLineQty(ctx context.Context, customerID int64, lineID uuid.UUID, qty int) (*models.Order, error)
	RemoveLine(ctx context.Context, customerID int64, lineID uuid.UUID) (*models.Order, error)
	Recompute(ctx context.Context, order *models.Order) error
}

type orderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindDraftByCustomer(ctx context.Context, customerID int64) (*models.Order, error)
	CreateLine(ctx context.Context, line *models.OrderLine) error
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	UpdateMoney(ctx context.Context, order *models.Order) error
}

type recomputer interface {
	Recompute(ctx context.Context, order *models.Order) (pricing.Totals, error)
}

type service struct {
	orders   orderRepository
	products catalog.PriceSource
	totals   recomputer
	currency enums.Currency
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Orders   orderRepository
	Products catalog.PriceSource
	Totals   recomputer
	Currency enums.Currency
}

// NewService constructs a cart service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("price source is required")
	}
	if params.Totals == nil {
		return nil, fmt.Errorf("totals recomputer is required")
	}
	currency := params.Currency
	if !currency.IsValid() {
		currency = enums.CurrencyUSD
	}
	return &service{
		orders:   params.Orders,
		products: params.Products,
		totals:   params.Totals,
		currency: currency,
	}, nil
}

// Get returns the customer's open draft, or nil when none exists. Viewing
// the cart never creates one; carts appear on the first mutation.
func (s *service) Get(ctx context.Context, customerID int64) (*models.Order, error) {
	order, err := s.orders.FindDraftByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load draft order")
	}
	return order, nil
}

// GetOrCreate resolves the customer's single open draft, creating it when
// absent. A concurrent first call may win the insert race; the loser trips
// the one-draft-per-customer index and re-reads the winner's row, so both
// callers observe the same cart id.
func (s *service) GetOrCreate(ctx context.Context, customerID int64) (*models.Order, error) {
	order, err := s.orders.FindDraftByCustomer(ctx, customerID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load draft order")
	}

	fresh := &models.Order{
		CustomerID: customerID,
		Status:     enums.OrderStatusDraft,
		Currency:   s.currency,
	}
	if createErr := s.orders.Create(ctx, fresh); createErr != nil {
		if db.IsUniqueViolation(createErr, draftIndexName) {
			order, err = s.orders.FindDraftByCustomer(ctx, customerID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload draft order after insert race")
			}
			return order, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, createErr, "create draft order")
	}
	return fresh, nil
}

// AddLine merges by product reference: an existing line for the product
// gains quantity, keeping the unit price captured at first add.
func (s *service) AddLine(ctx context.Context, customerID int64, productRef string, qty int) (*models.Order, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": qty})
	}

	order, err := s.GetOrCreate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDraft(order); err != nil {
		return nil, err
	}

	if existing := findLineByProduct(order, productRef); existing != nil {
		if err := s.orders.UpdateLineQuantity(ctx, existing.ID, existing.Quantity+qty); err != nil {
			return nil, mapLineWriteErr(err, "merge line quantity")
		}
	} else {
		product, err := s.products.PriceFor(ctx, productRef)
		if err != nil {
			return nil, err
		}
		line := &models.OrderLine{
			OrderID:        order.ID,
			ProductRef:     product.ProductRef,
			ProductName:    product.Name,
			Quantity:       qty,
			UnitPriceCents: product.PriceCents,
		}
		if err := s.orders.CreateLine(ctx, line); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order line")
		}
	}

	return s.reload(ctx, customerID)
}

// SetLineQty overwrites a line's quantity; zero or below removes the line.
func (s *service) SetLineQty(ctx context.Context, customerID int64, lineID uuid.UUID, qty int) (*models.Order, error) {
	if qty <= 0 {
		return s.RemoveLine(ctx, customerID, lineID)
	}

	order, line, err := s.findOwnedLine(ctx, customerID, lineID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDraft(order); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateLineQuantity(ctx, line.ID, qty); err != nil {
		return nil, mapLineWriteErr(err, "update line quantity")
	}
	return s.reload(ctx, customerID)
}

// RemoveLine deletes a line from the customer's draft.
func (s *service) RemoveLine(ctx context.Context, customerID int64, lineID uuid.UUID) (*models.Order, error) {
	order, line, err := s.findOwnedLine(ctx, customerID, lineID)
	if err != nil {
		return nil, err
	}
	if err := s.requireDraft(order); err != nil {
		return nil, err
	}

	if err := s.orders.DeleteLine(ctx, line.ID); err != nil {
		return nil, mapLineWriteErr(err, "delete order line")
	}
	return s.reload(ctx, customerID)
}

// Recompute refreshes and persists the order's totals from its current
// state. Called after every mutation so totals never drift from lines.
func (s *service) Recompute(ctx context.Context, order *models.Order) error {
	totals, err := s.totals.Recompute(ctx, order)
	if err != nil {
		return err
	}
	totals.Apply(order)
	if err := s.orders.UpdateMoney(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist totals")
	}
	return nil
}

func (s *service) reload(ctx context.Context, customerID int64) (*models.Order, error) {
	order, err := s.orders.FindDraftByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload draft order")
	}
	if err := s.Recompute(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) findOwnedLine(ctx context.Context, customerID int64, lineID uuid.UUID) (*models.Order, *models.OrderLine, error) {
	order, err := s.orders.FindDraftByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load draft order")
	}
	for i := range order.Lines {
		if order.Lines[i].ID == lineID {
			return order, &order.Lines[i], nil
		}
	}
	return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
}

func (s *service) requireDraft(order *models.Order) error {
	if order.Status != enums.OrderStatusDraft {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not editable")
	}
	return nil
}

// mapLineWriteErr turns a zero-row line write into the same state conflict
// requireDraft reports; the snapshot check can miss a confirm that lands
// between the read and the write, the scoped UPDATE cannot.
func mapLineWriteErr(err error, msg string) error {
	if errors.Is(err, ErrNotEditable) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not editable")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}

func findLineByProduct(order *models.Order, productRef string) *models.OrderLine {
	for i := range order.Lines {
		if order.Lines[i].ProductRef == productRef {
			return &order.Lines[i]
		}
	}
	return nil
}
