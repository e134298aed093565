package repository

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("unique constraint violated")
)

// Repository is the persistent store behind users, short links and subdomain redirects.
// Writers are serialized by the underlying database.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int, error)

	CreateShortLink(ctx context.Context, link *models.ShortLink) error
	GetShortLink(ctx context.Context, id int64) (*models.ShortLink, error)
	GetShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, error)
	ListShortLinks(ctx context.Context, ownerID *int64) ([]models.ShortLink, error)
	UpdateShortLink(ctx context.Context, link *models.ShortLink) error
	DeleteShortLink(ctx context.Context, id int64) error
	IncrementShortLinkHits(ctx context.Context, id int64) error

	CreateSubdomain(ctx context.Context, redirect *models.SubdomainRedirect) error
	GetSubdomain(ctx context.Context, id int64) (*models.SubdomainRedirect, error)
	GetSubdomainByHost(ctx context.Context, host string) (*models.SubdomainRedirect, error)
	ListSubdomains(ctx context.Context, ownerID *int64) ([]models.SubdomainRedirect, error)
	ListRoutes(ctx context.Context) ([]models.SubdomainRedirect, error)
	UpdateSubdomain(ctx context.Context, redirect *models.SubdomainRedirect) error
	DeleteSubdomain(ctx context.Context, id int64) error
	IncrementSubdomainHits(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
	Close() error
}

// New opens the store named by dsn: Postgres for postgres:// URLs, libsql for
// remote libsql/Turso URLs and a local SQLite file otherwise.
func New(ctx context.Context, dsn string, logger *zap.Logger) (Repository, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresRepository(ctx, dsn, logger)
	default:
		return NewSQLiteRepository(ctx, dsn, logger)
	}
}
