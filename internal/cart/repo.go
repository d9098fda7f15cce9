package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/pkg/db/models"
	"github.com/dmoratto/storefront-backend/pkg/enums"
)

// ErrNotEditable reports a write that matched no draft row: the order was
// confirmed between the caller's read and its write.
var ErrNotEditable = errors.New("order is not editable")

// Repository exposes persistence operations for draft and confirmed orders.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an order repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new order row.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusDraft
	}
	return r.db.WithContext(ctx).Create(order).Error
}

// FindDraftByCustomer loads the customer's open draft with its lines in
// insertion order.
func (r *Repository) FindDraftByCustomer(ctx context.Context, customerID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("customer_id = ? AND status = ?", customerID, enums.OrderStatusDraft).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindLatestConfirmedByCustomer returns the customer's most recently
// confirmed order, used to answer confirm retries after the draft is gone.
func (r *Repository) FindLatestConfirmedByCustomer(ctx context.Context, customerID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("customer_id = ? AND status = ?", customerID, enums.OrderStatusConfirmed).
		Order("confirmed_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDAndCustomer returns an order restricted to the owning customer.
func (r *Repository) FindByIDAndCustomer(ctx context.Context, id uuid.UUID, customerID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ? AND customer_id = ?", id, customerID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateLine inserts a new order line.
func (r *Repository) CreateLine(ctx context.Context, line *models.OrderLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(line).Error
}

// UpdateLineQuantity overwrites the quantity of an existing line. The write
// is scoped to lines of draft orders so a racing confirm cannot have its
// lines edited afterwards.
func (r *Repository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderLine{}).
		Where("id = ? AND order_id IN (?)", lineID, r.draftOrderIDs()).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotEditable
	}
	return nil
}

// DeleteLine removes a line from its order, draft orders only.
func (r *Repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND order_id IN (?)", lineID, r.draftOrderIDs()).
		Delete(&models.OrderLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotEditable
	}
	return nil
}

// UpdateMoney persists a recomputed totals snapshot. Only drafts accept the
// write: a recompute racing a confirm matches zero rows and the totals
// frozen by ConfirmIfDraft stay untouched.
func (r *Repository) UpdateMoney(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, enums.OrderStatusDraft).
		Updates(map[string]any{
			"subtotal_cents":   order.SubtotalCents,
			"tax_cents":        order.TaxCents,
			"delivery_cents":   order.DeliveryCents,
			"total_cents":      order.TotalCents,
			"delivery_warning": order.DeliveryWarning,
		}).Error
}

// UpdateAddresses persists the billing/shipping address pair on a draft.
func (r *Repository) UpdateAddresses(ctx context.Context, order *models.Order) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, enums.OrderStatusDraft).
		Select("billing_address", "shipping_address").
		Updates(&models.Order{
			BillingAddress:  order.BillingAddress,
			ShippingAddress: order.ShippingAddress,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotEditable
	}
	return nil
}

// UpdateCarrier persists the selected carrier reference on a draft.
func (r *Repository) UpdateCarrier(ctx context.Context, orderID uuid.UUID, carrierRef string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusDraft).
		Update("carrier_ref", carrierRef)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotEditable
	}
	return nil
}

func (r *Repository) draftOrderIDs() *gorm.DB {
	return r.db.Model(&models.Order{}).
		Select("id").
		Where("status = ?", enums.OrderStatusDraft)
}

// ConfirmIfDraft flips a draft order to confirmed, freezing its reference
// and totals. The WHERE status filter is the compare-and-set that makes
// concurrent double-confirms lose cleanly: the returned count is zero when
// the order was no longer a draft.
func (r *Repository) ConfirmIfDraft(ctx context.Context, order *models.Order, reference string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, enums.OrderStatusDraft).
		Updates(map[string]any{
			"status":           enums.OrderStatusConfirmed,
			"reference":        reference,
			"confirmed_at":     at,
			"subtotal_cents":   order.SubtotalCents,
			"tax_cents":        order.TaxCents,
			"delivery_cents":   order.DeliveryCents,
			"total_cents":      order.TotalCents,
			"delivery_warning": order.DeliveryWarning,
		})
	return result.RowsAffected, result.Error
}
