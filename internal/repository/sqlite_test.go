package repository

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	repo, err := NewSQLiteRepository(context.Background(), dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteDriver(t *testing.T) {
	tests := []struct {
		name       string
		dsn        string
		wantDriver string
		wantDSN    string
	}{
		{
			name:       "local file gets pragmas",
			dsn:        "file:yetla.db",
			wantDriver: "sqlite",
			wantDSN:    "file:yetla.db?" + sqlitePragmas,
		},
		{
			name:       "existing query is extended",
			dsn:        "file:yetla.db?mode=rwc",
			wantDriver: "sqlite",
			wantDSN:    "file:yetla.db?mode=rwc&" + sqlitePragmas,
		},
		{
			name:       "explicit pragmas are kept",
			dsn:        "file:yetla.db?_pragma=journal_mode(WAL)",
			wantDriver: "sqlite",
			wantDSN:    "file:yetla.db?_pragma=journal_mode(WAL)",
		},
		{
			name:       "libsql url",
			dsn:        "libsql://db.turso.io?authToken=x",
			wantDriver: "libsql",
			wantDSN:    "libsql://db.turso.io?authToken=x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn := sqliteDriver(tt.dsn)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestSQLiteRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	admin := &models.User{Username: "admin", Email: "admin@example.com", PasswordHash: "h", IsAdmin: true}
	require.NoError(t, repo.CreateUser(ctx, admin))
	assert.NotZero(t, admin.ID)
	assert.False(t, admin.CreatedAt.IsZero())

	err := repo.CreateUser(ctx, &models.User{Username: "admin", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, got.ID)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, admin.CreatedAt.Unix(), got.CreatedAt.Unix())

	_, err = repo.GetUser(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got.Email = "root@example.com"
	got.IsAdmin = false
	require.NoError(t, repo.UpdateUser(ctx, got))
	count, err = repo.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	assert.ErrorIs(t, repo.UpdateUser(ctx, &models.User{ID: 999, Username: "ghost"}), ErrNotFound)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "root@example.com", users[0].Email)
}

func TestSQLiteRepository_ShortLinks(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	owner := &models.User{Username: "alice", PasswordHash: "h"}
	require.NoError(t, repo.CreateUser(ctx, owner))

	owned := &models.ShortLink{Code: "go", TargetURL: "https://example.com", OwnerID: &owner.ID}
	require.NoError(t, repo.CreateShortLink(ctx, owned))
	orphan := &models.ShortLink{Code: "free", TargetURL: "https://example.org"}
	require.NoError(t, repo.CreateShortLink(ctx, orphan))

	assert.ErrorIs(t, repo.CreateShortLink(ctx, &models.ShortLink{Code: "go", TargetURL: "https://x.test"}), ErrConflict)

	got, err := repo.GetShortLinkByCode(ctx, "go")
	require.NoError(t, err)
	require.NotNil(t, got.OwnerUsername)
	assert.Equal(t, "alice", *got.OwnerUsername)
	assert.True(t, got.OwnedBy(owner.ID))

	all, err := repo.ListShortLinks(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := repo.ListShortLinks(ctx, &owner.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "go", mine[0].Code)

	require.NoError(t, repo.IncrementShortLinkHits(ctx, owned.ID))
	require.NoError(t, repo.IncrementShortLinkHits(ctx, owned.ID))
	got, err = repo.GetShortLink(ctx, owned.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Hits)

	got.Code = "free"
	assert.ErrorIs(t, repo.UpdateShortLink(ctx, got), ErrConflict)

	require.NoError(t, repo.DeleteUser(ctx, owner.ID))
	got, err = repo.GetShortLink(ctx, owned.ID)
	require.NoError(t, err)
	assert.Nil(t, got.OwnerID)
	assert.Nil(t, got.OwnerUsername)

	require.NoError(t, repo.DeleteShortLink(ctx, owned.ID))
	assert.ErrorIs(t, repo.DeleteShortLink(ctx, owned.ID), ErrNotFound)
}

func TestSQLiteRepository_Subdomains(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	for _, host := range []string{"b.test", "a.test", "c.test"} {
		require.NoError(t, repo.CreateSubdomain(ctx, &models.SubdomainRedirect{
			Host:      host,
			TargetURL: "https://" + host + ".example.com",
			Code:      302,
		}))
	}
	assert.ErrorIs(t, repo.CreateSubdomain(ctx, &models.SubdomainRedirect{Host: "a.test", TargetURL: "https://x", Code: 301}), ErrConflict)

	routes, err := repo.ListRoutes(ctx)
	require.NoError(t, err)
	require.Len(t, routes, 3)
	assert.Equal(t, "a.test", routes[0].Host)
	assert.Equal(t, "c.test", routes[2].Host)

	got, err := repo.GetSubdomainByHost(ctx, "b.test")
	require.NoError(t, err)
	assert.Equal(t, 302, got.Code)

	got.Code = 301
	got.TargetURL = "https://new.example.com"
	require.NoError(t, repo.UpdateSubdomain(ctx, got))
	got, err = repo.GetSubdomain(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, 301, got.Code)
	assert.Equal(t, "https://new.example.com", got.TargetURL)

	_, err = repo.GetSubdomainByHost(ctx, "missing.test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRepository_ConcurrentHits(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLite(t)

	redirect := &models.SubdomainRedirect{Host: "hits.test", TargetURL: "https://example.com", Code: 302}
	require.NoError(t, repo.CreateSubdomain(ctx, redirect))

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.IncrementSubdomainHits(ctx, redirect.ID))
		}()
	}
	wg.Wait()

	got, err := repo.GetSubdomain(ctx, redirect.ID)
	require.NoError(t, err)
	assert.EqualValues(t, workers, got.Hits)
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "reopen.db")

	repo, err := NewSQLiteRepository(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, repo.CreateShortLink(ctx, &models.ShortLink{Code: "keep", TargetURL: "https://example.com"}))
	require.NoError(t, repo.Close())

	repo, err = NewSQLiteRepository(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetShortLinkByCode(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.TargetURL)
	assert.NoError(t, repo.Ping(ctx))
}
