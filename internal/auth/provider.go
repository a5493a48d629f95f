// Package auth verifies API callers. One Provider is chosen at startup:
// local accounts with signed tokens, or tokens issued by a managed identity
// service that shares its signing secret.
package auth

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderLocal   = "local"
	ProviderManaged = "managed"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUsernameExists    = errors.New("username already exists")
	ErrEmailExists       = errors.New("email already exists")
	ErrInvalidCredential = errors.New("invalid username or password")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrUnsupported       = errors.New("operation not supported by auth provider")
)

type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

type Result struct {
	Token    string   `json:"token"`
	Identity Identity `json:"user"`
}

type Provider interface {
	Name() string
	Register(ctx context.Context, in RegisterInput) (*Result, error)
	Login(ctx context.Context, in LoginInput) (*Result, error)
	Verify(ctx context.Context, token string) (*Identity, error)
}

// NewProvider picks the provider variant named by kind.
func NewProvider(kind string, local *LocalProvider, managed *ManagedProvider) (Provider, error) {
	switch kind {
	case "", ProviderLocal:
		if local == nil {
			return nil, errors.New("local auth provider is not configured")
		}
		return local, nil
	case ProviderManaged:
		if managed == nil {
			return nil, errors.New("managed auth provider is not configured")
		}
		return managed, nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", kind)
	}
}
