package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/models"
	"github.com/yetla/redirector/internal/repository"
)

const testIterations = 1000

type fixture struct {
	svc   *Service
	repo  repository.Repository
	admin *models.User
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.NewSQLiteRepository(ctx, "file:"+filepath.Join(t.TempDir(), "svc.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	if opts.AdminUser == "" {
		opts.AdminUser = "admin"
		opts.AdminPassword = "admin"
		opts.AdminEmail = "admin@example.com"
	}
	svc := NewService(repo, auth.NewHasher(testIterations), opts, zap.NewNop())
	require.NoError(t, svc.EnsureDefaultAdmin(ctx))

	admin, err := repo.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, admin: admin}
}

func (f *fixture) addUser(t *testing.T, username string, isAdmin bool) *models.User {
	t.Helper()
	user, err := f.svc.CreateUser(context.Background(), f.admin, models.UserInput{
		Username: username,
		Email:    username + "@example.com",
		Password: username + "pass",
		IsAdmin:  &isAdmin,
	})
	require.NoError(t, err)
	return user
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	var svcErr *Error
	assert.True(t, errors.As(err, &svcErr), "expected *service.Error, got %T", err)
}

func TestGenerateShortCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateShortCode(8)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Legacy.Test", want: "legacy.test"},
		{in: "legacy.test:8080", want: "legacy.test"},
		{in: "legacy.test.", want: "legacy.test"},
		{in: "[::1]:80", want: "::1"},
		{in: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeHost(tt.in))
		})
	}
}

func TestEnsureDefaultAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	assert.True(t, f.admin.IsAdmin)
	assert.Equal(t, "admin@example.com", f.admin.Email)

	f.admin.IsAdmin = false
	f.admin.Email = ""
	require.NoError(t, f.repo.UpdateUser(ctx, f.admin))

	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
	restored, err := f.repo.GetUser(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsAdmin)
	assert.Equal(t, "admin@example.com", restored.Email)

	restored.Email = "custom@example.com"
	require.NoError(t, f.repo.UpdateUser(ctx, restored))
	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
	kept, err := f.repo.GetUser(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "custom@example.com", kept.Email)

	users, err := f.repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEnsureDefaultAdmin_RehashesStaleDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	weak, err := auth.NewHasher(10).Hash("admin")
	require.NoError(t, err)
	f.admin.PasswordHash = weak
	require.NoError(t, f.repo.UpdateUser(ctx, f.admin))

	require.NoError(t, f.svc.EnsureDefaultAdmin(ctx))
	got, err := f.repo.GetUser(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.NotEqual(t, weak, got.PasswordHash)
	assert.False(t, f.svc.hasher.NeedsRehash(got.PasswordHash))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid", username: "admin", password: "admin"},
		{name: "username is normalized", username: "  ADMIN ", password: "admin"},
		{name: "wrong password", username: "admin", password: "nope", wantErr: auth.ErrInvalidCredentials},
		{name: "unknown user", username: "ghost", password: "admin", wantErr: auth.ErrInvalidCredentials},
		{name: "empty username", username: "", password: "admin", wantErr: auth.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.svc.Authenticate(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, f.admin.ID, user.ID)
		})
	}
}

func TestAuthenticate_UpgradesStaleHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Options{})

	weak, err := auth.NewHasher(10).Hash("admin")
	require.NoError(t, err)
	f.admin.PasswordHash = weak
	require.NoError(t, f.repo.UpdateUser(ctx, f.admin))

	_, err = f.svc.Authenticate(ctx, "admin", "admin")
	require.NoError(t, err)

	got, err := f.repo.GetUser(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Contains(t, got.PasswordHash, "$1000$")
	assert.True(t, f.svc.hasher.Verify("admin", got.PasswordHash))
}

func TestLookupUser(t *testing.T) {
	f := newFixture(t, Options{})

	user, err := f.svc.LookupUser(context.Background(), f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)

	user, err = f.svc.LookupUser(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, user)
}

// staleLookups hides existing rows from the uniqueness pre-checks, as when a
// concurrent writer commits between the check and the insert.
type staleLookups struct {
	repository.Repository
}

func (staleLookups) GetShortLinkByCode(context.Context, string) (*models.ShortLink, error) {
	return nil, repository.ErrNotFound
}

func (staleLookups) GetSubdomainByHost(context.Context, string) (*models.SubdomainRedirect, error) {
	return nil, repository.ErrNotFound
}

func (f *fixture) racingService(opts Options) *Service {
	return NewService(staleLookups{Repository: f.repo}, auth.NewHasher(testIterations), opts, zap.NewNop())
}
