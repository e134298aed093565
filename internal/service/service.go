package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/repository"
)

const (
	DefaultCodeLength = 6
	maxAttempts       = 10
)

type Options struct {
	BaseDomain string
	CodeLength int

	AdminUser     string
	AdminPassword string
	AdminEmail    string
}

// Service holds the business rules for links, subdomain redirects and users.
// It is safe for concurrent use; all shared state lives in the repository.
type Service struct {
	repo       repository.Repository
	hasher     *auth.Hasher
	validate   *validator.Validate
	logger     *zap.Logger
	opts       Options
	generateID func(length int) (string, error)
}

func NewService(repo repository.Repository, hasher *auth.Hasher, opts Options, logger *zap.Logger) *Service {
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	opts.BaseDomain = NormalizeHost(opts.BaseDomain)
	opts.AdminUser = normalizeUsername(opts.AdminUser)

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		repo:       repo,
		hasher:     hasher,
		validate:   validate,
		logger:     logger,
		opts:       opts,
		generateID: GenerateShortCode,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ownerFilter limits listings to the actor's own records unless the actor is an admin.
func ownerFilter(actor *models.User) *int64 {
	if actor.IsAdmin {
		return nil
	}
	id := actor.ID
	return &id
}

func requireAdmin(actor *models.User) error {
	if actor == nil || !actor.IsAdmin {
		return newError(ErrForbidden, "admin privileges required")
	}
	return nil
}

// validationError turns validator output into a single readable message.
func validationError(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("validate input: %w", err)
	}

	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be an absolute URL", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", field))
		}
	}
	return newError(ErrValidation, "%s", strings.Join(msgs, ", "))
}
