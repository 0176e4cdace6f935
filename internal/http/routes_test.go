package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/communo/internal/cache"
	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/http/handlers"
	"github.com/dropDatabas3/communo/internal/http/helpers"
	authsvc "github.com/dropDatabas3/communo/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
	"github.com/dropDatabas3/communo/internal/oauth"
	"github.com/dropDatabas3/communo/internal/security/password"
	"github.com/dropDatabas3/communo/internal/store/memory"
)

// Parámetros argon2 bajos: acá no se mide resistencia a fuerza bruta.
var testHashParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

type testAPI struct {
	router http.Handler
	store  *memory.Store
	deps   authsvc.Deps
	state  cache.Client
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.New()
	deps := authsvc.Deps{
		Users:                store.Users(),
		Tokens:               store.Tokens(),
		Issuer:               jwtx.NewIssuer([]byte("0123456789abcdef0123456789abcdef"), "communo"),
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           14 * 24 * time.Hour,
		SyntheticEmailDomain: "users.communo.app",
	}

	kakao, err := oauth.New("kakao", "client-id", "client-secret", "http://localhost:8080/oauth2/callback/kakao")
	require.NoError(t, err)

	state := cache.NewMemory("test:", 5*time.Minute)
	h := &handlers.Handlers{
		Reconcile:   authsvc.NewReconcileService(deps),
		Session:     authsvc.NewSessionService(deps),
		Login:       authsvc.NewLoginService(deps),
		Refresh:     authsvc.NewRefreshService(deps),
		Logout:      authsvc.NewLogoutService(deps),
		Deactivate:  authsvc.NewDeactivateService(deps),
		Providers:   map[string]*oauth.Client{"kakao": kakao},
		State:       state,
		StateTTL:    5 * time.Minute,
		RedirectURL: "http://front.communo.app/login",
		Cookie:      handlers.CookieSettings{SameSite: "lax", TTL: 14 * 24 * time.Hour},
	}

	router := NewRouter(RouterDeps{
		Handlers:           h,
		Issuer:             deps.Issuer,
		Users:              store.Users(),
		CORSAllowedOrigins: []string{"*"},
	})
	return &testAPI{router: router, store: store, deps: deps, state: state}
}

func (a *testAPI) seedLocal(t *testing.T, email, plain string) *repository.User {
	t.Helper()
	hash, err := password.Hash(testHashParams, plain)
	require.NoError(t, err)
	u, err := a.store.Users().Create(context.Background(), repository.CreateUserInput{
		Email:        email,
		PasswordHash: &hash,
		Name:         "Ana",
		Role:         repository.RoleUser,
		Provider:     repository.ProviderLocal,
		ProviderID:   email,
	})
	require.NoError(t, err)
	require.NoError(t, a.store.Users().AddAuthority(context.Background(), u.ID, repository.RoleUser))
	return u
}

func (a *testAPI) login(t *testing.T, email, plain string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	body := strings.NewReader(`{"email":"` + email + `","password":"` + plain + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var refresh string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == helpers.RefreshCookieName {
			refresh = ck.Value
		}
	}
	return rec, refresh
}

func accessTokenFrom(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	return resp.AccessToken
}

func TestLoginEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.seedLocal(t, "ana@communo.app", "s3creta")

	rec, refresh := api.login(t, "ana@communo.app", "s3creta")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, accessTokenFrom(t, rec))
	assert.NotEmpty(t, refresh)

	// Cookie con flags correctos.
	var ck *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == helpers.RefreshCookieName {
			ck = c
		}
	}
	require.NotNil(t, ck)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/", ck.Path)

	// Credenciales malas: 401 genérico.
	rec, _ = api.login(t, "ana@communo.app", "mala")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeEndpoint(t *testing.T) {
	api := newTestAPI(t)
	u := api.seedLocal(t, "ana@communo.app", "s3creta")
	rec, _ := api.login(t, "ana@communo.app", "s3creta")
	access := accessTokenFrom(t, rec)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		ID    int64    `json:"id"`
		Email string   `json:"email"`
		Roles []string `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, u.ID, me.ID)
	assert.Equal(t, []string{repository.RoleUser}, me.Roles)

	// Sin token: 401.
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpoint_RotatesAndInvalidatesOld(t *testing.T) {
	api := newTestAPI(t)
	api.seedLocal(t, "ana@communo.app", "s3creta")
	_, refresh := api.login(t, "ana@communo.app", "s3creta")

	doRefresh := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: helpers.RefreshCookieName, Value: token})
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec
	}

	rec := doRefresh(refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, accessTokenFrom(t, rec))

	// La credencial vieja quedó revocada: reusarla falla y borra cookie.
	rec = doRefresh(refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	deleted := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == helpers.RefreshCookieName && ck.MaxAge < 0 {
			deleted = true
		}
	}
	assert.True(t, deleted)

	// Sin cookie: sesión expirada.
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutEndpoint_Idempotent(t *testing.T) {
	api := newTestAPI(t)
	api.seedLocal(t, "ana@communo.app", "s3creta")
	_, refresh := api.login(t, "ana@communo.app", "s3creta")

	doLogout := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: helpers.RefreshCookieName, Value: token})
		}
		rec := httptest.NewRecorder()
		api.router.ServeHTTP(rec, req)
		return rec
	}

	for _, token := range []string{refresh, refresh, "desconocido", ""} {
		rec := doLogout(token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	row, err := api.store.Tokens().GetByToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.False(t, row.Active())
}

func TestDeactivateEndpoint(t *testing.T) {
	api := newTestAPI(t)
	u := api.seedLocal(t, "ana@communo.app", "s3creta")
	rec, refresh := api.login(t, "ana@communo.app", "s3creta")
	access := accessTokenFrom(t, rec)

	req := httptest.NewRequest(http.MethodDelete, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, err := api.store.Users().GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	// El refresh de la sesión quedó revocado junto con la baja.
	row, err := api.store.Tokens().GetByToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.False(t, row.Active())

	// El access token viejo ya no abre el gate.
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSocialStartEndpoint(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/authorize/kakao", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "kauth.kakao.com", loc.Host)
	assert.Equal(t, "client-id", loc.Query().Get("client_id"))

	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	stored, err := api.state.Get(context.Background(), "state:"+state)
	require.NoError(t, err)
	assert.Equal(t, "kakao", stored)

	// Proveedor desconocido: 400.
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/authorize/myspace", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSocialCallback_RejectsBadState(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/oauth2/callback/kakao?code=abc&state=inventado", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Sin code ni state: 400 también.
	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth2/callback/kakao", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
