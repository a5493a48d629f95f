package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"bodymind-ai/internal/auth"
	"bodymind-ai/internal/transport/http/response"
)

const ContextIdentityKey = "identity"

func Authenticate(provider auth.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		identity, err := provider.Verify(c.Request.Context(), token)
		if err != nil {
			response.Error(c, 401, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom returns the caller set by Authenticate.
func IdentityFrom(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	return identity, ok && identity != nil
}
