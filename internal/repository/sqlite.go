package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yetla/redirector/internal/models"
)

const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"

// SQLiteRepository serves local SQLite files and remote libsql (Turso) databases.
type SQLiteRepository struct {
	db     *sql.DB
	q      queries
	logger *zap.Logger
}

func NewSQLiteRepository(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteRepository, error) {
	driverName, dsn := sqliteDriver(dsn)

	if err := migrateSQLite(driverName, dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driverName == "sqlite" {
		// one writer at a time; SQLite locks the whole file anyway
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("SQLite repository initialized successfully", zap.String("driver", driverName))

	return &SQLiteRepository{
		db:     db,
		q:      newQueries(squirrel.Question),
		logger: logger,
	}, nil
}

func sqliteDriver(dsn string) (string, string) {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") || strings.HasPrefix(dsn, "https://") {
		return "libsql", dsn
	}
	if strings.Contains(dsn, "_pragma=") {
		return "sqlite", dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return "sqlite", dsn + sep + sqlitePragmas
}

func (s *SQLiteRepository) queryRow(ctx context.Context, b squirrel.Sqlizer) (*sql.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return s.db.QueryRowContext(ctx, query, args...), nil
}

func (s *SQLiteRepository) query(ctx context.Context, b squirrel.Sqlizer) (*sql.Rows, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return rows, nil
}

func (s *SQLiteRepository) exec(ctx context.Context, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return sqliteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteRepository) insert(ctx context.Context, b squirrel.Sqlizer, id *int64) error {
	row, err := s.queryRow(ctx, b)
	if err != nil {
		return err
	}
	if err := row.Scan(id); err != nil {
		return sqliteError(err)
	}
	return nil
}

func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrConflict, liteErr.Error())
		}
	}
	// libsql reports constraint failures as plain text
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}
	return fmt.Errorf("execute query: %w", err)
}

func (s *SQLiteRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	return s.insert(ctx, s.q.insertUser(user), &user.ID)
}

func (s *SQLiteRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, squirrel.Eq{"id": id})
}

func (s *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, squirrel.Eq{"username": username})
}

func (s *SQLiteRepository) getUser(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	row, err := s.queryRow(ctx, s.q.selectUsers().Where(where))
	if err != nil {
		return nil, err
	}
	user, err := scanUser(row)
	if err != nil {
		return nil, sqliteError(err)
	}
	return user, nil
}

func (s *SQLiteRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.query(ctx, s.q.selectUsers().OrderBy("id"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *SQLiteRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return s.exec(ctx, s.q.updateUser(user))
}

func (s *SQLiteRepository) DeleteUser(ctx context.Context, id int64) error {
	return s.exec(ctx, s.q.deleteByID(usersTable, id))
}

func (s *SQLiteRepository) CountAdmins(ctx context.Context) (int, error) {
	row, err := s.queryRow(ctx, s.q.countAdmins())
	if err != nil {
		return 0, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, sqliteError(err)
	}
	return count, nil
}

func (s *SQLiteRepository) CreateShortLink(ctx context.Context, link *models.ShortLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now()
	}
	return s.insert(ctx, s.q.insertLink(link), &link.ID)
}

func (s *SQLiteRepository) GetShortLink(ctx context.Context, id int64) (*models.ShortLink, error) {
	return s.getLink(ctx, squirrel.Eq{"l.id": id})
}

func (s *SQLiteRepository) GetShortLinkByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	return s.getLink(ctx, squirrel.Eq{"l.code": code})
}

func (s *SQLiteRepository) getLink(ctx context.Context, where squirrel.Eq) (*models.ShortLink, error) {
	row, err := s.queryRow(ctx, s.q.selectLinks().Where(where))
	if err != nil {
		return nil, err
	}
	link, err := scanLink(row)
	if err != nil {
		return nil, sqliteError(err)
	}
	return link, nil
}

func (s *SQLiteRepository) ListShortLinks(ctx context.Context, ownerID *int64) ([]models.ShortLink, error) {
	rows, err := s.query(ctx, s.q.listLinks(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

func (s *SQLiteRepository) UpdateShortLink(ctx context.Context, link *models.ShortLink) error {
	return s.exec(ctx, s.q.updateLink(link))
}

func (s *SQLiteRepository) DeleteShortLink(ctx context.Context, id int64) error {
	return s.exec(ctx, s.q.deleteByID(linksTable, id))
}

func (s *SQLiteRepository) IncrementShortLinkHits(ctx context.Context, id int64) error {
	return s.exec(ctx, s.q.incrementHits(linksTable, id))
}

func (s *SQLiteRepository) CreateSubdomain(ctx context.Context, redirect *models.SubdomainRedirect) error {
	if redirect.CreatedAt.IsZero() {
		redirect.CreatedAt = now()
	}
	return s.insert(ctx, s.q.insertSubdomain(redirect), &redirect.ID)
}

func (s *SQLiteRepository) GetSubdomain(ctx context.Context, id int64) (*models.SubdomainRedirect, error) {
	return s.getSubdomain(ctx, squirrel.Eq{"s.id": id})
}

func (s *SQLiteRepository) GetSubdomainByHost(ctx context.Context, host string) (*models.SubdomainRedirect, error) {
	return s.getSubdomain(ctx, squirrel.Eq{"s.host": host})
}

func (s *SQLiteRepository) getSubdomain(ctx context.Context, where squirrel.Eq) (*models.SubdomainRedirect, error) {
	row, err := s.queryRow(ctx, s.q.selectSubdomains().Where(where))
	if err != nil {
		return nil, err
	}
	redirect, err := scanSubdomain(row)
	if err != nil {
		return nil, sqliteError(err)
	}
	return redirect, nil
}

func (s *SQLiteRepository) ListSubdomains(ctx context.Context, ownerID *int64) ([]models.SubdomainRedirect, error) {
	rows, err := s.query(ctx, s.q.listSubdomains(ownerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubdomains(rows)
}

func (s *SQLiteRepository) ListRoutes(ctx context.Context) ([]models.SubdomainRedirect, error) {
	rows, err := s.query(ctx, s.q.selectSubdomains().OrderBy("s.host"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubdomains(rows)
}

func (s *SQLiteRepository) UpdateSubdomain(ctx context.Context, redirect *models.SubdomainRedirect) error {
	return s.exec(ctx, s.q.updateSubdomain(redirect))
}

func (s *SQLiteRepository) DeleteSubdomain(ctx context.Context, id int64) error {
	return s.exec(ctx, s.q.deleteByID(subdomainsTable, id))
}

func (s *SQLiteRepository) IncrementSubdomainHits(ctx context.Context, id int64) error {
	return s.exec(ctx, s.q.incrementHits(subdomainsTable, id))
}

func (s *SQLiteRepository) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteRepository) Close() error {
	return s.db.Close()
}
