package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"bodymind-ai/internal/model"
	"bodymind-ai/internal/pkg/jwtutil"
	"bodymind-ai/internal/repository"
)

const minPasswordLength = 8

// LocalProvider stores bcrypt password hashes and issues its own tokens.
type LocalProvider struct {
	userRepo      *repository.UserRepository
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewLocalProvider(userRepo *repository.UserRepository, jwtSecret string, jwtExpiration time.Duration) *LocalProvider {
	return &LocalProvider{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (p *LocalProvider) Name() string { return ProviderLocal }

func (p *LocalProvider) Register(ctx context.Context, input RegisterInput) (*Result, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := strings.TrimSpace(input.Password)

	if username == "" || email == "" || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	existingByName, err := p.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existingByName != nil {
		return nil, ErrUsernameExists
	}

	existingByEmail, err := p.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := p.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return p.issue(user)
}

func (p *LocalProvider) Login(ctx context.Context, input LoginInput) (*Result, error) {
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}

	user, err := p.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	if err := p.userRepo.TouchLastLogin(ctx, user.ID, time.Now()); err != nil {
		return nil, err
	}
	return p.issue(user)
}

// Verify also checks that the user still exists.
func (p *LocalProvider) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := jwtutil.ParseToken(p.jwtSecret, token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	user, err := p.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	identity := identityOf(user)
	return &identity, nil
}

func (p *LocalProvider) issue(user *model.User) (*Result, error) {
	token, err := jwtutil.GenerateToken(p.jwtSecret, p.jwtExpiration, user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, Identity: identityOf(user)}, nil
}

func identityOf(user *model.User) Identity {
	return Identity{
		UserID:   strconv.FormatUint(uint64(user.ID), 10),
		Username: user.Username,
		Email:    user.Email,
	}
}
