package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/repository"
)

const (
	msgSubdomainNotFound  = "subdomain redirect not found"
	msgSubdomainExists    = "subdomain redirect already exists"
	msgSubdomainForbidden = "not authorized to operate on this subdomain redirect"
)

func (s *Service) ListSubdomains(ctx context.Context, actor *models.User) ([]models.SubdomainRedirect, error) {
	return s.repo.ListSubdomains(ctx, ownerFilter(actor))
}

// ListRoutes is the public, host-ordered view of every subdomain redirect.
func (s *Service) ListRoutes(ctx context.Context) ([]models.SubdomainRedirect, error) {
	return s.repo.ListRoutes(ctx)
}

func (s *Service) RouteByHost(ctx context.Context, host string) (*models.SubdomainRedirect, error) {
	redirect, err := s.repo.GetSubdomainByHost(ctx, NormalizeHost(host))
	if err != nil {
		return nil, storeError(err, msgSubdomainNotFound, msgSubdomainExists)
	}
	return redirect, nil
}

func (s *Service) GetSubdomain(ctx context.Context, actor *models.User, id int64) (*models.SubdomainRedirect, error) {
	redirect, err := s.repo.GetSubdomain(ctx, id)
	if err != nil {
		return nil, storeError(err, msgSubdomainNotFound, msgSubdomainExists)
	}
	if !actor.IsAdmin && !redirect.OwnedBy(actor.ID) {
		return nil, newError(ErrForbidden, msgSubdomainForbidden)
	}
	return redirect, nil
}

func (s *Service) CreateSubdomain(ctx context.Context, actor *models.User, in models.SubdomainInput) (*models.SubdomainRedirect, error) {
	in, err := s.checkSubdomainInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.ensureHostFree(ctx, in.Host); err != nil {
		return nil, err
	}

	ownerID := actor.ID
	redirect := &models.SubdomainRedirect{
		Host:      in.Host,
		TargetURL: in.TargetURL,
		Code:      in.Code,
		OwnerID:   &ownerID,
	}
	if err := s.repo.CreateSubdomain(ctx, redirect); err != nil {
		return nil, storeError(err, msgSubdomainNotFound, msgSubdomainExists)
	}

	s.logger.Info("Subdomain redirect created",
		zap.String("host", redirect.Host),
		zap.String("target_url", redirect.TargetURL),
		zap.Int("code", redirect.Code),
		zap.String("owner", actor.Username))

	return s.repo.GetSubdomain(ctx, redirect.ID)
}

func (s *Service) UpdateSubdomain(ctx context.Context, actor *models.User, id int64, in models.SubdomainInput) (*models.SubdomainRedirect, error) {
	redirect, err := s.GetSubdomain(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	in, err = s.checkSubdomainInput(in)
	if err != nil {
		return nil, err
	}
	if in.Host != redirect.Host {
		if err := s.ensureHostFree(ctx, in.Host); err != nil {
			return nil, err
		}
	}

	redirect.Host = in.Host
	redirect.TargetURL = in.TargetURL
	redirect.Code = in.Code
	if redirect.OwnerID == nil {
		ownerID := actor.ID
		redirect.OwnerID = &ownerID
	}

	if err := s.repo.UpdateSubdomain(ctx, redirect); err != nil {
		return nil, storeError(err, msgSubdomainNotFound, msgSubdomainExists)
	}
	return s.repo.GetSubdomain(ctx, redirect.ID)
}

func (s *Service) DeleteSubdomain(ctx context.Context, actor *models.User, id int64) error {
	redirect, err := s.GetSubdomain(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSubdomain(ctx, redirect.ID); err != nil {
		return storeError(err, msgSubdomainNotFound, msgSubdomainExists)
	}

	s.logger.Info("Subdomain redirect deleted", zap.String("host", redirect.Host), zap.String("by", actor.Username))
	return nil
}

func (s *Service) checkSubdomainInput(in models.SubdomainInput) (models.SubdomainInput, error) {
	in.Host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(in.Host)), ".")
	in.TargetURL = strings.TrimSpace(in.TargetURL)
	if in.Code == 0 {
		in.Code = http.StatusFound
	}

	if err := s.validate.Struct(in); err != nil {
		return in, validationError(err)
	}
	if err := s.validate.Var(in.Host, "hostname_rfc1123"); err != nil {
		return in, newError(ErrValidation, "host must be a valid hostname without scheme or port")
	}
	if err := checkTargetURL(in.TargetURL); err != nil {
		return in, err
	}
	return in, nil
}

func (s *Service) ensureHostFree(ctx context.Context, host string) error {
	_, err := s.repo.GetSubdomainByHost(ctx, host)
	switch {
	case err == nil:
		return newError(ErrConflict, msgSubdomainExists)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}
