package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/repository"
)

const (
	msgLinkNotFound  = "short link not found"
	msgLinkExists    = "short link code already exists"
	msgLinkForbidden = "not authorized to operate on this short link"
)

// storeError maps repository sentinels onto caller-facing errors.
func storeError(err error, notFound, conflict string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(ErrNotFound, "%s", notFound)
	case errors.Is(err, repository.ErrConflict):
		return newError(ErrConflict, "%s", conflict)
	}
	return err
}

func (s *Service) ListLinks(ctx context.Context, actor *models.User) ([]models.ShortLink, error) {
	return s.repo.ListShortLinks(ctx, ownerFilter(actor))
}

func (s *Service) GetLink(ctx context.Context, actor *models.User, id int64) (*models.ShortLink, error) {
	link, err := s.repo.GetShortLink(ctx, id)
	if err != nil {
		return nil, storeError(err, msgLinkNotFound, msgLinkExists)
	}
	if !actor.IsAdmin && !link.OwnedBy(actor.ID) {
		return nil, newError(ErrForbidden, msgLinkForbidden)
	}
	return link, nil
}

func (s *Service) CreateLink(ctx context.Context, actor *models.User, in models.LinkInput) (*models.ShortLink, error) {
	in, err := s.checkLinkInput(in)
	if err != nil {
		return nil, err
	}

	ownerID := actor.ID
	link := &models.ShortLink{TargetURL: in.TargetURL, OwnerID: &ownerID}

	if in.Code == "" {
		if err := s.createWithGeneratedCode(ctx, link); err != nil {
			return nil, err
		}
	} else {
		if err := s.ensureCodeFree(ctx, in.Code); err != nil {
			return nil, err
		}
		link.Code = in.Code
		if err := s.repo.CreateShortLink(ctx, link); err != nil {
			return nil, storeError(err, msgLinkNotFound, msgLinkExists)
		}
	}

	s.logger.Info("Short link created",
		zap.String("code", link.Code),
		zap.String("target_url", link.TargetURL),
		zap.String("owner", actor.Username))

	return s.repo.GetShortLink(ctx, link.ID)
}

// createWithGeneratedCode retries on collisions; the unique index is the final arbiter.
func (s *Service) createWithGeneratedCode(ctx context.Context, link *models.ShortLink) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := s.generateID(s.opts.CodeLength)
		if err != nil {
			return err
		}

		if _, err := s.repo.GetShortLinkByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		link.Code = code
		err = s.repo.CreateShortLink(ctx, link)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}

	s.logger.Error("Failed to generate unique short code after max attempts",
		zap.Int("attempts", maxAttempts),
		zap.Int("length", s.opts.CodeLength))
	return newError(ErrConflict, "could not generate a unique short code")
}

func (s *Service) UpdateLink(ctx context.Context, actor *models.User, id int64, in models.LinkInput) (*models.ShortLink, error) {
	link, err := s.GetLink(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	in, err = s.checkLinkInput(in)
	if err != nil {
		return nil, err
	}

	if in.Code != "" && in.Code != link.Code {
		if err := s.ensureCodeFree(ctx, in.Code); err != nil {
			return nil, err
		}
		link.Code = in.Code
	}
	link.TargetURL = in.TargetURL
	if link.OwnerID == nil {
		ownerID := actor.ID
		link.OwnerID = &ownerID
	}

	if err := s.repo.UpdateShortLink(ctx, link); err != nil {
		return nil, storeError(err, msgLinkNotFound, msgLinkExists)
	}
	return s.repo.GetShortLink(ctx, link.ID)
}

func (s *Service) DeleteLink(ctx context.Context, actor *models.User, id int64) error {
	link, err := s.GetLink(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteShortLink(ctx, link.ID); err != nil {
		return storeError(err, msgLinkNotFound, msgLinkExists)
	}

	s.logger.Info("Short link deleted", zap.String("code", link.Code), zap.String("by", actor.Username))
	return nil
}

func (s *Service) checkLinkInput(in models.LinkInput) (models.LinkInput, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.TargetURL = strings.TrimSpace(in.TargetURL)

	if err := s.validate.Struct(in); err != nil {
		return in, validationError(err)
	}
	if err := checkTargetURL(in.TargetURL); err != nil {
		return in, err
	}
	if in.Code != "" && !customCodePattern.MatchString(in.Code) {
		return in, newError(ErrValidation, "code may only contain letters, digits, '-' and '_'")
	}
	return in, nil
}

// ensureCodeFree is the fast path; concurrent inserts are still caught by the unique index.
func (s *Service) ensureCodeFree(ctx context.Context, code string) error {
	_, err := s.repo.GetShortLinkByCode(ctx, code)
	switch {
	case err == nil:
		return newError(ErrConflict, msgLinkExists)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}
