package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/watch-market/internal/config"
	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/internal/repository/memory"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

func newAuthService() (*AuthService, *memory.Store) {
	store := memory.NewStore()
	cfg := config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 5, BcryptCost: 4}
	return NewAuthService(cfg, store.Users(), zap.NewNop()), store
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	session, err := svc.Register(ctx, "Ana", " Ana@Example.com ", "s3cret-pass", domain.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", session.User.Email)
	assert.NotEmpty(t, session.Token)

	claims, err := svc.TokenManager().ParseToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.Subject)

	_, err = svc.Register(ctx, "Ana", "ana@example.com", "s3cret-pass", domain.RoleBuyer)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	login, err := svc.Login(ctx, "ANA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ana@example.com", "wrong-pass")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnauthorized))
	_, err = svc.Login(ctx, "nobody@example.com", "whatever1")
	assert.True(t, errorutil.HasCode(err, errorutil.CodeUnauthorized))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService()
	_, err := svc.Register(context.Background(), "", "not-an-email", "short", domain.RoleAdmin)
	domainErr := errorutil.ToDomainError(err)
	require.Equal(t, errorutil.CodeValidation, domainErr.Code)
	for _, field := range []string{"name", "email", "password", "role"} {
		assert.Contains(t, domainErr.Details, field)
	}
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuthService()

	require.NoError(t, svc.EnsureAdmin(ctx, "", ""))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "bootstrap-pass"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root@example.com", "bootstrap-pass"))
	admin, err := store.Users().GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	_, err = svc.Register(ctx, "Bo", "bo@example.com", "s3cret-pass", domain.RoleBuyer)
	require.NoError(t, err)
	require.NoError(t, svc.EnsureAdmin(ctx, "bo@example.com", "ignored-pass"))
	promoted, err := store.Users().GetByEmail(ctx, "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
}

func TestRegisterRejectsPasswordBeyondBcryptLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	_, err := svc.Register(ctx, "Long", "long@example.com", strings.Repeat("p", maxPasswordLen+1), domain.RoleBuyer)
	domainErr := errorutil.ToDomainError(err)
	require.Equal(t, errorutil.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details, "password")

	_, err = svc.Register(ctx, "Long", "long@example.com", strings.Repeat("p", maxPasswordLen), domain.RoleBuyer)
	assert.NoError(t, err)

	assert.Error(t, svc.EnsureAdmin(ctx, "root@example.com", strings.Repeat("p", maxPasswordLen+1)))
}
