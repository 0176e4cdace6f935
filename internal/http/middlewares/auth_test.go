package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
	"github.com/dropDatabas3/communo/internal/observability/logger"
	"github.com/dropDatabas3/communo/internal/store/memory"
)

var gateSecret = []byte("0123456789abcdef0123456789abcdef")

func issueFor(t *testing.T, issuer *jwtx.Issuer, userID int64, ttl time.Duration) string {
	t.Helper()
	raw, _, err := issuer.IssueAccess(userID, []string{repository.RoleUser}, "a@b.c", ttl)
	require.NoError(t, err)
	return raw
}

// probe registra el principal visto por el handler final.
type probe struct {
	called    bool
	principal *Principal
}

func (p *probe) ServeHTTP(_ http.ResponseWriter, r *http.Request) {
	p.called = true
	p.principal = GetPrincipal(r.Context())
}

func newGate(t *testing.T) (*jwtx.Issuer, *memory.Store, *repository.User) {
	t.Helper()
	issuer := jwtx.NewIssuer(gateSecret, "communo")
	store := memory.New()
	u, err := store.Users().Create(context.Background(), repository.CreateUserInput{
		Email:      "kakao_1@users.communo.app",
		Role:       repository.RoleUser,
		Provider:   "kakao",
		ProviderID: "1",
	})
	require.NoError(t, err)
	return issuer, store, u
}

func TestOptionalAuth_ValidTokenActiveUser(t *testing.T) {
	issuer, store, u := newGate(t)
	p := &probe{}
	h := OptionalAuth(issuer, store.Users())(p)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, issuer, u.ID, time.Minute))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, p.called)
	require.NotNil(t, p.principal)
	assert.Equal(t, u.ID, p.principal.UserID)
	assert.Equal(t, []string{repository.RoleUser}, p.principal.Roles)
	assert.True(t, p.principal.HasRole(repository.RoleUser))
	assert.False(t, p.principal.HasRole(repository.RoleAdmin))
}

func TestOptionalAuth_NoHeaderIsAnonymous(t *testing.T) {
	issuer, store, _ := newGate(t)
	p := &probe{}
	h := OptionalAuth(issuer, store.Users())(p)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, p.called)
	assert.Nil(t, p.principal)
}

func TestOptionalAuth_BadTokenIsAnonymousNot500(t *testing.T) {
	issuer, store, u := newGate(t)
	p := &probe{}
	h := OptionalAuth(issuer, store.Users())(p)

	for _, raw := range []string{
		"garbage",
		issueFor(t, issuer, u.ID, -time.Minute), // expirado
	} {
		p.called, p.principal = false, nil
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		h.ServeHTTP(rec, req)

		require.True(t, p.called, "token=%q", raw)
		assert.Nil(t, p.principal)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestOptionalAuth_SignatureMismatchIsAnonymousAndLogged(t *testing.T) {
	issuer, store, u := newGate(t)
	// Token firmado con otra clave: firma que no verifica con la nuestra.
	forger := jwtx.NewIssuer([]byte("ffffffffffffffffffffffffffffffff"), "communo")
	forged := issueFor(t, forger, u.ID, time.Minute)

	core, logs := observer.New(zap.WarnLevel)
	p := &probe{}
	h := OptionalAuth(issuer, store.Users())(p)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.ToContext(req.Context(), zap.New(core)))
	req.Header.Set("Authorization", "Bearer "+forged)
	h.ServeHTTP(rec, req)

	// Anónimo y sin 5xx, pero con línea de auditoría.
	require.True(t, p.called)
	assert.Nil(t, p.principal)
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessageSnippet("signature mismatch").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}

func TestOptionalAuth_DeactivatedUserIsAnonymous(t *testing.T) {
	issuer, store, u := newGate(t)
	raw := issueFor(t, issuer, u.ID, time.Minute)
	require.NoError(t, store.Users().Deactivate(context.Background(), u.ID))

	p := &probe{}
	h := OptionalAuth(issuer, store.Users())(p)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	h.ServeHTTP(httptest.NewRecorder(), req)

	// El token todavía firma bien, pero la cuenta ya no existe para el gate.
	require.True(t, p.called)
	assert.Nil(t, p.principal)
}

func TestOptionalAuth_UnknownSubjectIsAnonymous(t *testing.T) {
	issuer, store, _ := newGate(t)
	p := &probe{}
	h := OptionalAuth(issuer, store.Users())(p)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, issuer, 9999, time.Minute))
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, p.called)
	assert.Nil(t, p.principal)
}

// failingUsers simula un store caído.
type failingUsers struct {
	repository.UserRepository
}

func (failingUsers) GetByID(context.Context, int64) (*repository.User, error) {
	return nil, errors.New("connection refused")
}

func TestOptionalAuth_StoreFailureIsAnonymous(t *testing.T) {
	issuer, _, u := newGate(t)
	p := &probe{}
	h := OptionalAuth(issuer, failingUsers{})(p)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, issuer, u.ID, time.Minute))
	h.ServeHTTP(rec, req)

	require.True(t, p.called)
	assert.Nil(t, p.principal)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_RejectsAnonymous(t *testing.T) {
	issuer, store, u := newGate(t)
	p := &probe{}
	h := RequireAuth(issuer, store.Users())(p)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	assert.False(t, p.called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	// Con token válido sí pasa.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+issueFor(t, issuer, u.ID, time.Minute))
	h.ServeHTTP(rec, req)
	assert.True(t, p.called)
}
