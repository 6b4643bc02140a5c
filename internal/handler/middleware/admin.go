package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"thinkpath/gatekeeper/pkg/response"
)

// AdminAuth lets through only the listed token subjects.
// Must be used after BearerAuth.
func AdminAuth(subjects []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		if s = strings.TrimSpace(s); s != "" {
			allowed[s] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			response.Unauthorized(c, response.CodeUnauthenticated, "missing authentication")
			return
		}

		if _, isAdmin := allowed[claims.Subject]; !isAdmin {
			response.Forbidden(c, response.CodeForbidden, "admin access required")
			return
		}

		c.Next()
	}
}
