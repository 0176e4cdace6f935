package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/communo/internal/domain/repository"
	"github.com/dropDatabas3/communo/internal/identity"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
	"github.com/dropDatabas3/communo/internal/security/password"
	"github.com/dropDatabas3/communo/internal/store/memory"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newDeps(t *testing.T) (Deps, *memory.Store) {
	t.Helper()
	store := memory.New()
	return Deps{
		Users:                store.Users(),
		Tokens:               store.Tokens(),
		Issuer:               jwtx.NewIssuer(testSecret, "communo"),
		AccessTTL:            15 * time.Minute,
		RefreshTTL:           14 * 24 * time.Hour,
		SyntheticEmailDomain: "users.communo.app",
	}, store
}

// Parámetros argon2 bajos: los tests no miden resistencia a fuerza bruta.
var testHashParams = password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func kakaoIdentity() identity.Canonical {
	return identity.Canonical{
		Provider:   "kakao",
		ProviderID: "1001",
		Name:       "철수",
		AvatarURL:  "https://cdn/1.png",
	}
}

// ────────────────────────────────────────────────────────────────────
// Reconcile
// ────────────────────────────────────────────────────────────────────

func TestReconcile_FirstLoginRegisters(t *testing.T) {
	deps, store := newDeps(t)
	svc := NewReconcileService(deps)
	ctx := context.Background()

	u, err := svc.Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)
	assert.Equal(t, repository.RoleUser, u.Role)
	assert.Equal(t, "철수", u.Name)
	// Sin email del proveedor: placeholder determinístico.
	assert.Equal(t, "kakao_1001@users.communo.app", u.Email)

	roles, err := store.Users().Authorities(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{repository.RoleUser}, roles)
}

func TestReconcile_FirstLoginKeepsProviderEmail(t *testing.T) {
	deps, _ := newDeps(t)
	svc := NewReconcileService(deps)

	id := kakaoIdentity()
	id.Email = "real@kakao.com"
	u, err := svc.Reconcile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "real@kakao.com", u.Email)
}

func TestReconcile_ReloginRefreshesProfileOnly(t *testing.T) {
	deps, store := newDeps(t)
	svc := NewReconcileService(deps)
	ctx := context.Background()

	first, err := svc.Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	again := kakaoIdentity()
	again.Name = "김철수"
	again.AvatarURL = "https://cdn/2.png"
	again.Email = "nuevo@kakao.com" // el email NO se resincroniza

	second, err := svc.Reconcile(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "김철수", second.Name)
	assert.Equal(t, "https://cdn/2.png", second.AvatarURL)

	stored, err := store.Users().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Email, stored.Email)
}

func TestReconcile_DeactivatedAccountRejected(t *testing.T) {
	deps, store := newDeps(t)
	svc := NewReconcileService(deps)
	ctx := context.Background()

	u, err := svc.Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)
	require.NoError(t, store.Users().Deactivate(ctx, u.ID))

	_, err = svc.Reconcile(ctx, kakaoIdentity())
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

// racingUsers simula la carrera de primer login: el lookup inicial no ve
// la cuenta, el INSERT choca y el relookup sí la encuentra.
type racingUsers struct {
	repository.UserRepository
	winner  *repository.User
	lookups int
}

func (r *racingUsers) GetByProvider(ctx context.Context, provider, providerID string) (*repository.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, repository.ErrNotFound
	}
	return r.winner, nil
}

func (r *racingUsers) Create(context.Context, repository.CreateUserInput) (*repository.User, error) {
	return nil, repository.ErrConflict
}

func (r *racingUsers) UpdateProfile(context.Context, int64, string, string) error { return nil }

func TestReconcile_CreateRaceRetriesAsFound(t *testing.T) {
	deps, _ := newDeps(t)
	winner := &repository.User{
		ID:         7,
		Provider:   "kakao",
		ProviderID: "1001",
		Name:       "철수",
		AvatarURL:  "https://cdn/1.png",
		Active:     true,
	}
	racing := &racingUsers{winner: winner}
	deps.Users = racing
	svc := NewReconcileService(deps)

	u, err := svc.Reconcile(context.Background(), kakaoIdentity())
	require.NoError(t, err)
	assert.Equal(t, winner.ID, u.ID)
	assert.Equal(t, 2, racing.lookups)
}

// ────────────────────────────────────────────────────────────────────
// Session
// ────────────────────────────────────────────────────────────────────

func TestIssueSession_ProducesVerifiablePair(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	session, err := NewSessionService(deps).IssueSession(ctx, u)
	require.NoError(t, err)

	claims, err := deps.Issuer.Verify(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.SubjectID)
	assert.Equal(t, []string{repository.RoleUser}, claims.Roles)

	// La credencial de refresco quedó persistida por su valor literal.
	row, err := store.Tokens().GetByToken(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.True(t, row.Active())
	assert.Nil(t, row.RotatedFrom)
}

func TestIssueSession_SupersedesPriorSession(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	svc := NewSessionService(deps)
	first, err := svc.IssueSession(ctx, u)
	require.NoError(t, err)
	_, err = svc.IssueSession(ctx, u)
	require.NoError(t, err)

	old, err := store.Tokens().GetByToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.False(t, old.Active())

	n, err := store.Tokens().CountActiveByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// ────────────────────────────────────────────────────────────────────
// Login local
// ────────────────────────────────────────────────────────────────────

func seedLocalUser(t *testing.T, store *memory.Store, plain string) *repository.User {
	t.Helper()
	hash, err := password.Hash(testHashParams, plain)
	require.NoError(t, err)
	u, err := store.Users().Create(context.Background(), repository.CreateUserInput{
		Email:        "ana@communo.app",
		PasswordHash: &hash,
		Name:         "Ana",
		Role:         repository.RoleUser,
		Provider:     repository.ProviderLocal,
		ProviderID:   "ana@communo.app",
	})
	require.NoError(t, err)
	return u
}

func TestLoginPassword(t *testing.T) {
	deps, store := newDeps(t)
	u := seedLocalUser(t, store, "s3creta")
	svc := NewLoginService(deps)
	ctx := context.Background()

	got, err := svc.LoginPassword(ctx, " ANA@communo.app ", "s3creta")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.LoginPassword(ctx, "ana@communo.app", "otra")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginPassword(ctx, "nadie@communo.app", "s3creta")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.LoginPassword(ctx, "", "")
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestLoginPassword_DeactivatedAndSocialAccounts(t *testing.T) {
	deps, store := newDeps(t)
	u := seedLocalUser(t, store, "s3creta")
	svc := NewLoginService(deps)
	ctx := context.Background()

	// Cuenta social sin password local.
	social, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)
	_, err = svc.LoginPassword(ctx, social.Email, "cualquiera")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, store.Users().Deactivate(ctx, u.ID))
	_, err = svc.LoginPassword(ctx, "ana@communo.app", "s3creta")
	// El email quedó tombstoneado, la cuenta ya no es localizable.
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// ────────────────────────────────────────────────────────────────────
// Rotación
// ────────────────────────────────────────────────────────────────────

func TestRotate_HappyPath(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	first, err := NewSessionService(deps).IssueSession(ctx, u)
	require.NoError(t, err)

	second, err := NewRefreshService(deps).Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	oldRow, err := store.Tokens().GetByToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.False(t, oldRow.Active())

	newRow, err := store.Tokens().GetByToken(ctx, second.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, newRow.RotatedFrom)
	assert.Equal(t, oldRow.ID, *newRow.RotatedFrom)
}

func TestRotate_RevokedCredentialRejected(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	session, err := NewSessionService(deps).IssueSession(ctx, u)
	require.NoError(t, err)
	require.NoError(t, store.Tokens().Revoke(ctx, session.RefreshToken))

	// La firma sigue siendo válida; el estado manda.
	_, err = NewRefreshService(deps).Rotate(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshRevoked)
}

func TestRotate_GarbageAndUnknownTokens(t *testing.T) {
	deps, _ := newDeps(t)
	svc := NewRefreshService(deps)
	ctx := context.Background()

	_, err := svc.Rotate(ctx, "")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	_, err = svc.Rotate(ctx, "ni.siquiera.jwt")
	assert.ErrorIs(t, err, ErrRefreshInvalid)

	// Firmado bien pero nunca persistido (emitido fuera de banda).
	raw, _, err := deps.Issuer.IssueRefresh(42, time.Hour)
	require.NoError(t, err)
	_, err = svc.Rotate(ctx, raw)
	assert.ErrorIs(t, err, ErrRefreshRevoked)
}

func TestRotate_DeactivatedUserRejected(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	session, err := NewSessionService(deps).IssueSession(ctx, u)
	require.NoError(t, err)
	require.NoError(t, store.Users().Deactivate(ctx, u.ID))

	_, err = NewRefreshService(deps).Rotate(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

// ────────────────────────────────────────────────────────────────────
// Logout y baja
// ────────────────────────────────────────────────────────────────────

func TestLogout_IsIdempotent(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)

	session, err := NewSessionService(deps).IssueSession(ctx, u)
	require.NoError(t, err)

	svc := NewLogoutService(deps)
	require.NoError(t, svc.Logout(ctx, session.RefreshToken))
	require.NoError(t, svc.Logout(ctx, session.RefreshToken)) // repetido
	require.NoError(t, svc.Logout(ctx, "desconocido"))
	require.NoError(t, svc.Logout(ctx, ""))

	row, err := store.Tokens().GetByToken(ctx, session.RefreshToken)
	require.NoError(t, err)
	assert.False(t, row.Active())
}

func TestDeactivate_RevokesEverything(t *testing.T) {
	deps, store := newDeps(t)
	ctx := context.Background()
	u, err := NewReconcileService(deps).Reconcile(ctx, kakaoIdentity())
	require.NoError(t, err)
	_, err = NewSessionService(deps).IssueSession(ctx, u)
	require.NoError(t, err)

	require.NoError(t, NewDeactivateService(deps).Deactivate(ctx, u.ID))

	got, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	n, err := store.Tokens().CountActiveByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
