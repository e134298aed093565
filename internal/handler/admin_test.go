package handler

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/service"
)

var htmx = map[string]string{"HX-Request": "true"}

func sessionCookie(t *testing.T, rec *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range rec.Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.SessionCookieName)
	return nil
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		name string
		next string
		want string
	}{
		{name: "empty", next: "", want: "/admin"},
		{name: "local path", next: "/admin?tab=users", want: "/admin?tab=users"},
		{name: "absolute url", next: "https://evil.test/admin", want: "/admin"},
		{name: "protocol relative", next: "//evil.test", want: "/admin"},
		{name: "backslash trick", next: "/\\evil.test", want: "/admin"},
		{name: "relative", next: "admin", want: "/admin"},
		{name: "login loop", next: "/admin/login", want: "/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, safeNext(tt.next))
		})
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, service.Options{})
	browser := map[string]string{"Accept": "text/html"}

	rec := env.do(t, request{method: http.MethodGet, target: "/admin/login?next=%2Fadmin%3Ftab%3Dusers", headers: browser})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="next" value="/admin?tab=users"`)

	rec = env.do(t, request{
		method:  http.MethodPost,
		target:  "/admin/login",
		form:    "username=admin&password=wrong&next=%2Fadmin",
		headers: browser,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")
	assert.Empty(t, rec.Result().Cookies())

	rec = env.do(t, request{
		method:  http.MethodPost,
		target:  "/admin/login",
		form:    "username=Admin&password=admin&next=" + url.QueryEscape("/admin?tab=users"),
		headers: browser,
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin?tab=users", rec.Header().Get("Location"))
	cookie := sessionCookie(t, rec.Result())
	assert.True(t, cookie.HttpOnly)

	rec = env.do(t, request{method: http.MethodGet, target: "/admin?tab=users", headers: browser, cookies: []*http.Cookie{cookie}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="user-count"`)
	assert.Contains(t, rec.Body.String(), "admin@example.com")

	rec = env.do(t, request{method: http.MethodGet, target: "/api/links", cookies: []*http.Cookie{cookie}})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, request{method: http.MethodGet, target: "/admin/login", headers: browser, cookies: []*http.Cookie{cookie}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = env.do(t, request{method: http.MethodPost, target: "/admin/logout", cookies: []*http.Cookie{cookie}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, auth.LoginPath, rec.Header().Get("Location"))
	cleared := sessionCookie(t, rec.Result())
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)
}

func TestLoginRejectsForeignNext(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, request{
		method: http.MethodPost,
		target: "/admin/login",
		form:   "username=admin&password=admin&next=" + url.QueryEscape("https://evil.test/"),
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = env.do(t, request{method: http.MethodGet, target: "/metrics"})
	assert.Contains(t, rec.Body.String(), `yetla_logins_total{result="success"} 1`)
}

func TestTamperedSessionIsIgnored(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	forged, err := auth.NewSessionCodec("other-secret").Serialize(map[string]any{"user_id": 1, "is_admin": true})
	require.NoError(t, err)

	rec := env.do(t, request{
		method:  http.MethodGet,
		target:  "/api/users",
		cookies: []*http.Cookie{{Name: auth.SessionCookieName, Value: forged}},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTMXLinks(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, request{
		method:  http.MethodPost,
		target:  "/api/links",
		form:    "code=go&target_url=" + url.QueryEscape("https://example.com/landing"),
		basic:   adminAuth,
		headers: htmx,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "refresh-links", rec.Header().Get("HX-Trigger"))
	assert.Contains(t, rec.Body.String(), "short link created")
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = env.do(t, request{
		method:  http.MethodPost,
		target:  "/api/links",
		form:    "code=go&target_url=" + url.QueryEscape("https://example.org"),
		basic:   adminAuth,
		headers: htmx,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "alert-danger")
	assert.Contains(t, rec.Body.String(), "short link code already exists")
	assert.Empty(t, rec.Header().Get("HX-Trigger"))

	link, err := env.svc.ListLinks(t.Context(), mustAuthenticate(t, env, "admin", "admin"))
	require.NoError(t, err)
	require.Len(t, link, 1)
	id := itoa(link[0].ID)

	type want struct {
		statusCode int
		contains   []string
	}

	tests := []struct {
		name   string
		method string
		target string
		form   string
		want   want
	}{
		{
			name:   "table fragment",
			method: http.MethodGet,
			target: "/admin/links/table",
			want:   want{statusCode: http.StatusOK, contains: []string{`<th scope="col">Short link</th>`, `<th scope="col">User</th>`, "short-link-row"}},
		},
		{
			name:   "count fragment",
			method: http.MethodGet,
			target: "/admin/links/count",
			want:   want{statusCode: http.StatusOK, contains: []string{`<span id="short-link-count">1</span>`}},
		},
		{
			name:   "edit row",
			method: http.MethodGet,
			target: "/admin/links/" + id + "/edit",
			want:   want{statusCode: http.StatusOK, contains: []string{`name="target_url" value="https://example.com/landing"`}},
		},
		{
			name:   "row",
			method: http.MethodGet,
			target: "/admin/links/" + id + "/row",
			want:   want{statusCode: http.StatusOK, contains: []string{`id="short-link-row-` + id + `"`}},
		},
		{
			name:   "update swaps row out of band",
			method: http.MethodPut,
			target: "/api/links/" + id,
			form:   "code=go&target_url=" + url.QueryEscape("https://example.com/v2"),
			want:   want{statusCode: http.StatusOK, contains: []string{"short-link-row", `hx-swap-oob="outerHTML"`, "https://example.com/v2"}},
		},
		{
			name:   "missing row renders alert",
			method: http.MethodGet,
			target: "/admin/links/9999/row",
			want:   want{statusCode: http.StatusNotFound, contains: []string{"short link not found"}},
		},
		{
			name:   "delete answers with message",
			method: http.MethodDelete,
			target: "/api/links/" + id,
			want:   want{statusCode: http.StatusOK, contains: []string{"short link deleted"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, request{method: tt.method, target: tt.target, form: tt.form, basic: adminAuth, headers: htmx})

			assert.Equal(t, tt.want.statusCode, rec.Code, rec.Body.String())
			for _, s := range tt.want.contains {
				assert.Contains(t, rec.Body.String(), s)
			}
		})
	}
}

func TestHTMXSubdomainsAndUsers(t *testing.T) {
	env := newTestEnv(t, service.Options{})
	alice := env.createUser(t, "alice", false)

	rec := env.do(t, request{
		method:  http.MethodPost,
		target:  "/api/subdomains",
		form:    "host=docs.test&code=301&target_url=" + url.QueryEscape("https://example.com/docs"),
		basic:   adminAuth,
		headers: htmx,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "refresh-subdomains", rec.Header().Get("HX-Trigger"))

	rec = env.do(t, request{method: http.MethodGet, target: "/admin/subdomains/table", basic: adminAuth, headers: htmx})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docs.test")
	assert.Contains(t, rec.Body.String(), "<td>301</td>")

	rec = env.do(t, request{method: http.MethodGet, target: "/admin/users/table", basic: adminAuth, headers: htmx})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@example.com")

	rec = env.do(t, request{method: http.MethodGet, target: "/admin/users/count", basic: []string{"alice", "alicepass"}, headers: htmx})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, request{
		method:  http.MethodPut,
		target:  "/api/users/" + itoa(alice.ID),
		form:    "username=alice&email=alice%40example.com&is_admin=0&is_admin=1",
		basic:   adminAuth,
		headers: htmx,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "refresh-users", rec.Header().Get("HX-Trigger"))
	assert.Contains(t, rec.Body.String(), `hx-swap-oob="outerHTML"`)

	promoted := mustAuthenticate(t, env, "alice", "alicepass")
	assert.True(t, promoted.IsAdmin)

	rec = env.do(t, request{
		method:  http.MethodPost,
		target:  "/api/users/me/password",
		form:    "current_password=alicepass&new_password=newpass1&new_password_confirm=newpass1",
		basic:   []string{"alice", "alicepass"},
		headers: htmx,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "password-updated", rec.Header().Get("HX-Trigger"))
	assert.Contains(t, rec.Body.String(), "password updated")
}

func TestPasswordForm(t *testing.T) {
	env := newTestEnv(t, service.Options{})

	rec := env.do(t, request{method: http.MethodPost, target: "/admin/login", form: "username=admin&password=admin"})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec.Result())

	rec = env.do(t, request{
		method:  http.MethodPost,
		target:  "/admin/password",
		form:    "current_password=wrong&new_password=newpass1&new_password_confirm=newpass1",
		cookies: []*http.Cookie{cookie},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "current password is incorrect")

	rec = env.do(t, request{
		method:  http.MethodPost,
		target:  "/admin/password",
		form:    "current_password=admin&new_password=newpass1&new_password_confirm=newpass1",
		cookies: []*http.Cookie{cookie},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "password updated")

	mustAuthenticate(t, env, "admin", "newpass1")
}
