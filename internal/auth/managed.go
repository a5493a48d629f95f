package auth

import (
	"context"
	"errors"
	"strings"

	"bodymind-ai/internal/pkg/jwtutil"
)

// DefaultManagedAudience is the audience carried by signed-in user tokens of
// hosted identity services such as Supabase.
const DefaultManagedAudience = "authenticated"

// ManagedProvider only verifies tokens; accounts live in the external service.
type ManagedProvider struct {
	jwtSecret string
	audience  string
}

func NewManagedProvider(jwtSecret, audience string) *ManagedProvider {
	if audience == "" {
		audience = DefaultManagedAudience
	}
	return &ManagedProvider{jwtSecret: jwtSecret, audience: audience}
}

func (p *ManagedProvider) Name() string { return ProviderManaged }

func (p *ManagedProvider) Register(context.Context, RegisterInput) (*Result, error) {
	return nil, ErrUnsupported
}

func (p *ManagedProvider) Login(context.Context, LoginInput) (*Result, error) {
	return nil, ErrUnsupported
}

func (p *ManagedProvider) Verify(_ context.Context, token string) (*Identity, error) {
	claims, err := jwtutil.ParseRegistered(p.jwtSecret, token, p.audience)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.Subject}, nil
}
