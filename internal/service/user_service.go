package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"maintenance-service/internal/auth"
	"maintenance-service/internal/model"
	"maintenance-service/internal/policy"
	"maintenance-service/internal/repository"
)

type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

type UserInput struct {
	Name     string     `validate:"required,max=255"`
	Email    string     `validate:"required,max=255,email"`
	Phone    string     `validate:"max=32"`
	Role     model.Role `validate:"oneof=admin technician client"`
	Password string     `validate:"min=8"`
}

// UserPatch is an admin edit of another account. Nil fields stay unchanged.
type UserPatch struct {
	Name  *string     `validate:"omitnil,min=1,max=255"`
	Email *string     `validate:"omitnil,max=255,email"`
	Phone *string     `validate:"omitnil,max=32"`
	Role  *model.Role `validate:"omitnil,oneof=admin technician client"`
}

// ProfilePatch is what users may change about themselves.
type ProfilePatch struct {
	Name  *string `validate:"omitnil,min=1,max=255"`
	Email *string `validate:"omitnil,max=255,email"`
	Phone *string `validate:"omitnil,max=32"`
}

type PasswordChange struct {
	CurrentPassword         string `validate:"required"`
	NewPassword             string `validate:"required,min=8"`
	NewPasswordConfirmation string `validate:"eqfield=NewPassword"`
}

// Create registers a user on behalf of an admin.
func (s *UserService) Create(ctx context.Context, principal model.Principal, in UserInput) (*model.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.register(ctx, in)
}

// Bootstrap creates the user unless the email is already taken. It reports
// whether a user was created.
func (s *UserService) Bootstrap(ctx context.Context, in UserInput) (*model.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(in.Email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	user, err := s.register(ctx, in)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *UserService) register(ctx context.Context, in UserInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns users ordered by name, optionally narrowed to one role.
func (s *UserService) List(ctx context.Context, principal model.Principal, role *model.Role) ([]model.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	if role != nil {
		return s.users.ListByRole(ctx, *role)
	}
	return s.users.List(ctx)
}

func (s *UserService) Get(ctx context.Context, principal model.Principal, id uint64) (*model.User, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	if !policy.IsAdmin(principal) && principal.UserID != id {
		return nil, ErrPermissionDenied
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

// Update lets an admin rename, re-address or re-role any account.
func (s *UserService) Update(ctx context.Context, principal model.Principal, id uint64, patch UserPatch) (*model.User, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, repository.UserChanges{
		Name:  patch.Name,
		Email: patch.Email,
		Phone: patch.Phone,
		Role:  patch.Role,
	})
}

// UpdateProfile edits the caller's own account. The role is not editable here.
func (s *UserService) UpdateProfile(ctx context.Context, principal model.Principal, patch ProfilePatch) (*model.User, error) {
	if err := requireAuthenticated(principal); err != nil {
		return nil, err
	}
	return s.apply(ctx, principal.UserID, repository.UserChanges{
		Name:  patch.Name,
		Email: patch.Email,
		Phone: patch.Phone,
	})
}

func (s *UserService) apply(ctx context.Context, id uint64, changes repository.UserChanges) (*model.User, error) {
	changes.Name = trimPtr(changes.Name)
	changes.Phone = trimPtr(changes.Phone)
	if changes.Email != nil {
		email := normalizeEmail(*changes.Email)
		changes.Email = &email
	}
	if err := validateInput(UserPatch{
		Name:  changes.Name,
		Email: changes.Email,
		Phone: changes.Phone,
		Role:  changes.Role,
	}); err != nil {
		return nil, err
	}

	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if changes.Email != nil && *changes.Email != current.Email {
		if err := s.ensureEmailFree(ctx, *changes.Email, id); err != nil {
			return nil, err
		}
	}
	if changes.Empty() {
		return current, nil
	}
	if err := s.users.Update(ctx, id, changes); err != nil {
		return nil, mapNotFound(err)
	}
	return s.reload(ctx, id)
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, principal model.Principal, in PasswordChange) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return mapNotFound(err)
	}
	if !auth.CheckPassword(user.PasswordHash, in.CurrentPassword) {
		return invalidInput("The current password is incorrect.")
	}
	hash, err := auth.HashPassword(in.NewPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return mapNotFound(s.users.UpdatePassword(ctx, user.ID, hash))
}

// Delete removes another account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, principal model.Principal, id uint64) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}
	if principal.UserID == id {
		return invalidInput("You cannot delete your own account.")
	}
	return mapNotFound(s.users.Delete(ctx, id))
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, ownerID uint64) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != ownerID:
		return invalidInput("The email has already been taken.")
	}
	return nil
}

func (s *UserService) reload(ctx context.Context, id uint64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requireAdmin(principal model.Principal) error {
	if err := requireAuthenticated(principal); err != nil {
		return err
	}
	if !policy.IsAdmin(principal) {
		return ErrPermissionDenied
	}
	return nil
}
