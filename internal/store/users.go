package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/reviewpulse/reviewpulse/internal/models"
)

type TenantRepo struct {
	db *gorm.DB
}

func (r *TenantRepo) Get(ctx context.Context, id string) (*models.Tenant, error) {
	var t models.Tenant
	err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TenantRepo) Create(ctx context.Context, t *models.Tenant) error {
	return r.db.WithContext(ctx).Create(t).Error
}

type UserRepo struct {
	db *gorm.DB
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// AlertRecipients returns the tenant's owners and managers that have a
// usable contact channel.
func (r *UserRepo) AlertRecipients(ctx context.Context, tenantID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND role IN ? AND (phone <> '' OR email <> '')",
			tenantID, []models.Role{models.RoleOwner, models.RoleManager}).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}
