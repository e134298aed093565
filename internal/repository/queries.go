package repository

import (
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/yetla/redirector/internal/models"
)

const (
	usersTable      = "users"
	linksTable      = "short_links"
	subdomainsTable = "subdomain_redirects"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type rowsScanner interface {
	rowScanner
	Next() bool
	Err() error
}

// queries builds the statements shared by every dialect; only the placeholder format differs.
type queries struct {
	sb squirrel.StatementBuilderType
}

func newQueries(format squirrel.PlaceholderFormat) queries {
	return queries{sb: squirrel.StatementBuilder.PlaceholderFormat(format)}
}

func (q queries) selectUsers() squirrel.SelectBuilder {
	return q.sb.
		Select("id", "username", "email", "password_hash", "is_admin", "created_at").
		From(usersTable)
}

func (q queries) insertUser(u *models.User) squirrel.InsertBuilder {
	return q.sb.
		Insert(usersTable).
		Columns("username", "email", "password_hash", "is_admin", "created_at").
		Values(u.Username, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt).
		Suffix("RETURNING id")
}

func (q queries) updateUser(u *models.User) squirrel.UpdateBuilder {
	return q.sb.
		Update(usersTable).
		SetMap(map[string]any{
			"username":      u.Username,
			"email":         u.Email,
			"password_hash": u.PasswordHash,
			"is_admin":      u.IsAdmin,
		}).
		Where(squirrel.Eq{"id": u.ID})
}

func (q queries) countAdmins() squirrel.SelectBuilder {
	return q.sb.Select("COUNT(*)").From(usersTable).Where(squirrel.Eq{"is_admin": true})
}

func (q queries) selectLinks() squirrel.SelectBuilder {
	return q.sb.
		Select("l.id", "l.code", "l.target_url", "l.hits", "l.created_at", "l.owner_id", "u.username").
		From(linksTable + " l").
		LeftJoin(usersTable + " u ON u.id = l.owner_id")
}

func (q queries) listLinks(ownerID *int64) squirrel.SelectBuilder {
	sel := q.selectLinks().OrderBy("l.created_at DESC", "l.id DESC")
	if ownerID != nil {
		sel = sel.Where(squirrel.Eq{"l.owner_id": *ownerID})
	}
	return sel
}

func (q queries) insertLink(l *models.ShortLink) squirrel.InsertBuilder {
	return q.sb.
		Insert(linksTable).
		Columns("code", "target_url", "hits", "created_at", "owner_id").
		Values(l.Code, l.TargetURL, l.Hits, l.CreatedAt, l.OwnerID).
		Suffix("RETURNING id")
}

func (q queries) updateLink(l *models.ShortLink) squirrel.UpdateBuilder {
	return q.sb.
		Update(linksTable).
		SetMap(map[string]any{
			"code":       l.Code,
			"target_url": l.TargetURL,
			"owner_id":   l.OwnerID,
		}).
		Where(squirrel.Eq{"id": l.ID})
}

func (q queries) selectSubdomains() squirrel.SelectBuilder {
	return q.sb.
		Select("s.id", "s.host", "s.target_url", "s.code", "s.hits", "s.created_at", "s.owner_id", "u.username").
		From(subdomainsTable + " s").
		LeftJoin(usersTable + " u ON u.id = s.owner_id")
}

func (q queries) listSubdomains(ownerID *int64) squirrel.SelectBuilder {
	sel := q.selectSubdomains().OrderBy("s.created_at DESC", "s.id DESC")
	if ownerID != nil {
		sel = sel.Where(squirrel.Eq{"s.owner_id": *ownerID})
	}
	return sel
}

func (q queries) insertSubdomain(s *models.SubdomainRedirect) squirrel.InsertBuilder {
	return q.sb.
		Insert(subdomainsTable).
		Columns("host", "target_url", "code", "hits", "created_at", "owner_id").
		Values(s.Host, s.TargetURL, s.Code, s.Hits, s.CreatedAt, s.OwnerID).
		Suffix("RETURNING id")
}

func (q queries) updateSubdomain(s *models.SubdomainRedirect) squirrel.UpdateBuilder {
	return q.sb.
		Update(subdomainsTable).
		SetMap(map[string]any{
			"host":       s.Host,
			"target_url": s.TargetURL,
			"code":       s.Code,
			"owner_id":   s.OwnerID,
		}).
		Where(squirrel.Eq{"id": s.ID})
}

// incrementHits is a single atomic statement so concurrent resolutions never lose an update.
func (q queries) incrementHits(table string, id int64) squirrel.UpdateBuilder {
	return q.sb.
		Update(table).
		Set("hits", squirrel.Expr("hits + 1")).
		Where(squirrel.Eq{"id": id})
}

func (q queries) deleteByID(table string, id int64) squirrel.DeleteBuilder {
	return q.sb.Delete(table).Where(squirrel.Eq{"id": id})
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func scanLink(row rowScanner) (*models.ShortLink, error) {
	var l models.ShortLink
	if err := row.Scan(&l.ID, &l.Code, &l.TargetURL, &l.Hits, &l.CreatedAt, &l.OwnerID, &l.OwnerUsername); err != nil {
		return nil, err
	}
	return &l, nil
}

func scanSubdomain(row rowScanner) (*models.SubdomainRedirect, error) {
	var s models.SubdomainRedirect
	if err := row.Scan(&s.ID, &s.Host, &s.TargetURL, &s.Code, &s.Hits, &s.CreatedAt, &s.OwnerID, &s.OwnerUsername); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectUsers(rows rowsScanner) ([]models.User, error) {
	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return users, nil
}

func collectLinks(rows rowsScanner) ([]models.ShortLink, error) {
	links := make([]models.ShortLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan short link: %w", err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return links, nil
}

func collectSubdomains(rows rowsScanner) ([]models.SubdomainRedirect, error) {
	redirects := make([]models.SubdomainRedirect, 0)
	for rows.Next() {
		s, err := scanSubdomain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subdomain redirect: %w", err)
		}
		redirects = append(redirects, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return redirects, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
