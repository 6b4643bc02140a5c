package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "thinkpath/gatekeeper/pkg/jwt"
	"thinkpath/gatekeeper/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

// TokenVerifier is satisfied by *jwt.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtpkg.Claims, error)
}

// BearerAuth verifies the Authorization header and stores *jwt.Claims in the context.
func BearerAuth(verifier TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := jwtpkg.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.Unauthorized(c, response.CodeUnauthenticated, "missing bearer token")
			return
		}

		claims, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			switch {
			case errors.Is(err, jwtpkg.ErrTokenExpired):
				response.Unauthorized(c, response.CodeTokenExpired, "token expired")
			case errors.Is(err, jwtpkg.ErrUnauthenticated):
				response.Unauthorized(c, response.CodeUnauthenticated, "missing bearer token")
			default:
				response.Unauthorized(c, response.CodeTokenInvalid, "invalid token")
			}
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the claims stored by BearerAuth.
func ClaimsFromContext(c *gin.Context) (*jwtpkg.Claims, bool) {
	v, exists := c.Get(ContextKeyUserClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwtpkg.Claims)
	return claims, ok && claims != nil
}
