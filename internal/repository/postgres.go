package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
)

type PostgresRepository struct {
	pool   *pgxpool.Pool
	q      queries
	logger *zap.Logger
}

func NewPostgresRepository(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := migratePostgres(dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("PostgreSQL repository initialized successfully")

	return &PostgresRepository{
		pool:   pool,
		q:      newQueries(squirrel.Dollar),
		logger: logger,
	}, nil
}

func (p *PostgresRepository) queryRow(ctx context.Context, b squirrel.Sqlizer) (pgx.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return p.pool.QueryRow(ctx, query, args...), nil
}

func (p *PostgresRepository) query(ctx context.Context, b squirrel.Sqlizer) (pgx.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return rows, nil
}

// exec reports ErrNotFound when the statement touched no row.
func (p *PostgresRepository) exec(ctx context.Context, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return pgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresRepository) insert(ctx context.Context, b squirrel.Sqlizer, id *int64) error {
	row, err := p.queryRow(ctx, b)
	if err != nil {
		return err
	}
	if err := row.Scan(id); err != nil {
		return pgError(err)
	}
	return nil
}

func pgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("execute query: %w", err)
}

func (p *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	return p.insert(ctx, p.q.insertUser(user), &user.ID)
}

func (p *PostgresRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return p.getUser(ctx, squirrel.Eq{"id": id})
}

func (p *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.getUser(ctx, squirrel.Eq{"username": username})
}

func (p *PostgresRepository) getUser(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	row, err := p.queryRow(ctx, p.q.selectUsers().Where(where))
	if err != nil {
		return nil, err
	}
	user, err := scanUser(row)
	if err != nil {
		return nil, pgError(err)
	}
	return user, nil
}

func (p *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.query(ctx, p.q.selectUsers().OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (p *PostgresRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return p.exec(ctx, p.q.updateUser(user))
}

func (p *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	return p.exec(ctx, p.q.deleteByID(usersTable, id))
}

func (p *PostgresRepository) CountAdmins(ctx context.Context) (int, error) {
	row, err := p.queryRow(ctx, p.q.countAdmins())
	if err != nil {
		return 0, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, pgError(err)
	}
	return count, nil
}

func (p *PostgresRepository) CreateShortLink(ctx context.Context, link *models.ShortLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now()
	}
	return p.insert(ctx, p.q.insertLink(link), &link.ID)
}

func (p *PostgresRepository) GetShortLink(ctx context.Context, id int64) (*models.ShortLink, error) {
	return p.getLink(ctx, squirrel.Eq{"l.id": id})
}

func (p *PostgresRepository) GetShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	return p.getLink(ctx, squirrel.Eq{"l.code": code})
}

func (p *PostgresRepository) getLink(ctx context.Context, where squirrel.Eq) (*models.ShortLink, error) {
	row, err := p.queryRow(ctx, p.q.selectLinks().Where(where))
	if err != nil {
		return nil, err
	}
	link, err := scanLink(row)
	if err != nil {
		return nil, pgError(err)
	}
	return link, nil
}

func (p *PostgresRepository) ListShortLinks(ctx context.Context, ownerID *int64) ([]models.ShortLink, error) {
	rows, err := p.query(ctx, p.q.listLinks(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

func (p *PostgresRepository) UpdateShortLink(ctx context.Context, link *models.ShortLink) error {
	return p.exec(ctx, p.q.updateLink(link))
}

func (p *PostgresRepository) DeleteShortLink(ctx context.Context, id int64) error {
	return p.exec(ctx, p.q.deleteByID(linksTable, id))
}

func (p *PostgresRepository) IncrementShortLinkHits(ctx context.Context, id int64) error {
	return p.exec(ctx, p.q.incrementHits(linksTable, id))
}

func (p *PostgresRepository) CreateSubdomain(ctx context.Context, redirect *models.SubdomainRedirect) error {
	if redirect.CreatedAt.IsZero() {
		redirect.CreatedAt = now()
	}
	return p.insert(ctx, p.q.insertSubdomain(redirect), &redirect.ID)
}

func (p *PostgresRepository) GetSubdomain(ctx context.Context, id int64) (*models.SubdomainRedirect, error) {
	return p.getSubdomain(ctx, squirrel.Eq{"s.id": id})
}

func (p *PostgresRepository) GetSubdomainByHost(ctx context.Context, host string) (*models.SubdomainRedirect, error) {
	return p.getSubdomain(ctx, squirrel.Eq{"s.host": host})
}

func (p *PostgresRepository) getSubdomain(ctx context.Context, where squirrel.Eq) (*models.SubdomainRedirect, error) {
	row, err := p.queryRow(ctx, p.q.selectSubdomains().Where(where))
	if err != nil {
		return nil, err
	}
	redirect, err := scanSubdomain(row)
	if err != nil {
		return nil, pgError(err)
	}
	return redirect, nil
}

func (p *PostgresRepository) ListSubdomains(ctx context.Context, ownerID *int64) ([]models.SubdomainRedirect, error) {
	rows, err := p.query(ctx, p.q.listSubdomains(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubdomains(rows)
}

func (p *PostgresRepository) ListRoutes(ctx context.Context) ([]models.SubdomainRedirect, error) {
	rows, err := p.query(ctx, p.q.selectSubdomains().OrderBy("s.host"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubdomains(rows)
}

func (p *PostgresRepository) UpdateSubdomain(ctx context.Context, redirect *models.SubdomainRedirect) error {
	return p.exec(ctx, p.q.updateSubdomain(redirect))
}

func (p *PostgresRepository) DeleteSubdomain(ctx context.Context, id int64) error {
	return p.exec(ctx, p.q.deleteByID(subdomainsTable, id))
}

func (p *PostgresRepository) IncrementSubdomainHits(ctx context.Context, id int64) error {
	return p.exec(ctx, p.q.incrementHits(subdomainsTable, id))
}

func (p *PostgresRepository) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresRepository) Close() error {
	p.pool.Close()
	return nil
}
