package catalog

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/pkg/db/models"
	pkgerrors "github.com/dmoratto/storefront-backend/pkg/errors"
)

// PriceSource answers add-to-cart price lookups.
type PriceSource interface {
	PriceFor(ctx context.Context, productRef string) (*models.Product, error)
}

// Repository exposes catalog persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a catalog repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// PriceFor returns the active product for the given reference. Unknown or
// inactive products surface as not-found so carts cannot pick up dead SKUs.
func (r *Repository) PriceFor(ctx context.Context, productRef string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("product_ref = ? AND is_active = ?", productRef, true).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup product")
	}
	return &product, nil
}

// Create inserts a catalog row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}
