package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bodymind-ai/internal/model"
	"bodymind-ai/internal/repository"
)

func newLocalProvider(t *testing.T) *LocalProvider {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewLocalProvider(repository.NewUserRepository(db), "test-secret", time.Hour)
}

func TestLocalProvider_RegisterLoginVerify(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)

	registered, err := p.Register(ctx, RegisterInput{Username: "alice", Email: "Alice@Example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice@example.com", registered.Identity.Email)

	loggedIn, err := p.Login(ctx, LoginInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)

	identity, err := p.Verify(ctx, loggedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.Identity, *identity)

	user, err := p.userRepo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
}

func TestLocalProvider_Errors(t *testing.T) {
	ctx := context.Background()
	p := newLocalProvider(t)
	_, err := p.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = p.Register(ctx, RegisterInput{Username: "bob", Email: "other@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = p.Register(ctx, RegisterInput{Username: "bobby", Email: "BOB@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = p.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "short"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.Login(ctx, LoginInput{Username: "bob", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = p.Login(ctx, LoginInput{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = p.Verify(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManagedProvider(t *testing.T) {
	ctx := context.Background()
	p := NewManagedProvider("shared-secret", "")

	sign := func(claims jwt.RegisteredClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("shared-secret"))
		require.NoError(t, err)
		return token
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	identity, err := p.Verify(ctx, sign(jwt.RegisteredClaims{Subject: "uuid-1", Audience: jwt.ClaimStrings{"authenticated"}, ExpiresAt: exp}))
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", identity.UserID)

	_, err = p.Verify(ctx, sign(jwt.RegisteredClaims{Subject: "uuid-1", Audience: jwt.ClaimStrings{"anon"}, ExpiresAt: exp}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Verify(ctx, sign(jwt.RegisteredClaims{Audience: jwt.ClaimStrings{"authenticated"}, ExpiresAt: exp}))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = p.Register(ctx, RegisterInput{})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = p.Login(ctx, LoginInput{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestNewProvider(t *testing.T) {
	local := &LocalProvider{}
	managed := NewManagedProvider("s", "")

	p, err := NewProvider("", local, managed)
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, p.Name())

	p, err = NewProvider(ProviderManaged, local, managed)
	require.NoError(t, err)
	assert.Equal(t, ProviderManaged, p.Name())

	_, err = NewProvider("oauth", local, managed)
	assert.Error(t, err)

	_, err = NewProvider(ProviderManaged, local, nil)
	assert.Error(t, err)
}
