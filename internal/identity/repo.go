package identity

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dmoratto/storefront-backend/pkg/db/models"
)

// Repository exposes customer-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a customers repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Lookup resolves a customer id into the directory record consumed by the
// authenticator. A missing row is not an error; Exists is false.
func (r *Repository) Lookup(ctx context.Context, id int64) (Record, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Record{}, nil
		}
		return Record{}, err
	}
	return recordFromModel(&customer), nil
}

// FindByEmail retrieves the customer matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// Create inserts a new customer row.
func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// UpdateLastLogin refreshes the customer's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

func recordFromModel(customer *models.Customer) Record {
	return Record{
		Exists:      true,
		Active:      customer.IsActive,
		ID:          customer.ID,
		DisplayName: customer.DisplayName,
		Email:       customer.Email,
		Guest:       customer.IsGuest,
	}
}
