package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/repository"
)

const (
	minPasswordLength = 6

	msgUserNotFound = "user not found"
	msgUserExists   = "username already exists"
)

func (s *Service) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, actor *models.User, id int64) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, storeError(err, msgUserNotFound, msgUserExists)
	}
	return user, nil
}

func (s *Service) CreateUser(ctx context.Context, actor *models.User, in models.UserInput) (*models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	in, err := s.checkUserInput(in)
	if err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, newError(ErrValidation, "password is required")
	}
	if err := checkNewPassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		IsAdmin:      in.IsAdmin != nil && *in.IsAdmin,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, msgUserNotFound, msgUserExists)
	}

	s.logger.Info("User created",
		zap.String("username", user.Username),
		zap.Bool("is_admin", user.IsAdmin),
		zap.String("by", actor.Username))
	return user, nil
}

// UpdateUser leaves the password untouched when none is supplied.
func (s *Service) UpdateUser(ctx context.Context, actor *models.User, id int64, in models.UserInput) (*models.User, error) {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	in, err = s.checkUserInput(in)
	if err != nil {
		return nil, err
	}

	if in.Username != user.Username {
		if err := s.ensureUsernameFree(ctx, in.Username); err != nil {
			return nil, err
		}
	}
	if in.IsAdmin != nil && !*in.IsAdmin && user.IsAdmin {
		if user.ID == actor.ID {
			return nil, newError(ErrBadRequest, "cannot remove your own admin privileges")
		}
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}
	if in.Password != "" {
		if err := checkNewPassword(in.Password, in.PasswordConfirm); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	user.Username = in.Username
	user.Email = in.Email
	if in.IsAdmin != nil {
		user.IsAdmin = *in.IsAdmin
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, storeError(err, msgUserNotFound, msgUserExists)
	}

	s.logger.Info("User updated", zap.String("username", user.Username), zap.String("by", actor.Username))
	return user, nil
}

func (s *Service) DeleteUser(ctx context.Context, actor *models.User, id int64) error {
	user, err := s.GetUser(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.ID == actor.ID {
		return newError(ErrBadRequest, "cannot delete your own account")
	}
	if user.IsAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.DeleteUser(ctx, user.ID); err != nil {
		return storeError(err, msgUserNotFound, msgUserExists)
	}

	s.logger.Info("User deleted", zap.String("username", user.Username), zap.String("by", actor.Username))
	return nil
}

// ChangePassword re-verifies the current password before storing the new one.
func (s *Service) ChangePassword(ctx context.Context, actor *models.User, in models.PasswordChange) error {
	user, err := s.repo.GetUser(ctx, actor.ID)
	if err != nil {
		return storeError(err, msgUserNotFound, msgUserExists)
	}
	if !s.hasher.Verify(in.CurrentPassword, user.PasswordHash) {
		return newError(ErrBadRequest, "current password is incorrect")
	}
	if err := checkNewPassword(in.NewPassword, in.NewPasswordConfirm); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return storeError(err, msgUserNotFound, msgUserExists)
	}

	s.logger.Info("Password changed", zap.String("username", user.Username))
	return nil
}

// LookupUser returns nil without error when the id is unknown.
func (s *Service) LookupUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// Authenticate checks credentials and upgrades a stale hash in place.
// A failed upgrade write fails the login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, auth.ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, auth.ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		hash, err := s.hasher.Rehash(password, user.PasswordHash)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("Password hash upgraded", zap.String("username", user.Username))
	}
	return user, nil
}

// EnsureDefaultAdmin creates the bootstrap admin, or restores its admin flag,
// email and hash strength when they drifted.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) error {
	username, password := s.opts.AdminUser, s.opts.AdminPassword
	if username == "" || password == "" {
		return nil
	}

	existing, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		admin := &models.User{
			Username:     username,
			Email:        s.opts.AdminEmail,
			PasswordHash: hash,
			IsAdmin:      true,
		}
		if err := s.repo.CreateUser(ctx, admin); err != nil {
			return err
		}
		s.logger.Info("Default admin created", zap.String("username", username))
		return nil
	}
	if err != nil {
		return err
	}

	updated := false
	if !existing.IsAdmin {
		existing.IsAdmin = true
		updated = true
	}
	if existing.Email == "" {
		existing.Email = s.opts.AdminEmail
		updated = true
	}
	if s.hasher.Verify(password, existing.PasswordHash) && s.hasher.NeedsRehash(existing.PasswordHash) {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return err
		}
		existing.PasswordHash = hash
		updated = true
	}

	if !updated {
		return nil
	}
	if err := s.repo.UpdateUser(ctx, existing); err != nil {
		return err
	}
	s.logger.Info("Default admin restored", zap.String("username", username))
	return nil
}

func (s *Service) checkUserInput(in models.UserInput) (models.UserInput, error) {
	in.Username = normalizeUsername(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if err := s.validate.Struct(in); err != nil {
		return in, validationError(err)
	}
	if strings.IndexFunc(in.Username, unicode.IsSpace) >= 0 {
		return in, newError(ErrValidation, "username must not contain whitespace")
	}
	return in, nil
}

func checkNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return newError(ErrValidation, "password must be at least %d characters", minPasswordLength)
	}
	if confirm != "" && confirm != password {
		return newError(ErrValidation, "password confirmation does not match")
	}
	return nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.repo.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return newError(ErrConflict, msgUserExists)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *Service) ensureAnotherAdmin(ctx context.Context) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if count <= 1 {
		return newError(ErrBadRequest, "cannot remove the last admin")
	}
	return nil
}
