package repository

import (
	"context"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) Update(ctx context.Context, id uint64, changes UserChanges) error {
	data := map[string]interface{}{}
	if changes.Name != nil {
		data["name"] = *changes.Name
	}
	if changes.Email != nil {
		data["email"] = *changes.Email
	}
	if changes.Phone != nil {
		data["phone"] = *changes.Phone
	}
	if changes.Role != nil {
		data["role"] = *changes.Role
	}
	if len(data) == 0 {
		return nil
	}
	return r.updateColumns(ctx, id, data)
}

func (r *userRepository) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"password": hash})
}

// Delete removes the user; owned tickets, interventions and notifications
// go with it through the foreign keys.
func (r *userRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) updateColumns(ctx context.Context, id uint64, data map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(data)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
