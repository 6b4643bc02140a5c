package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	jwtpkg "thinkpath/gatekeeper/pkg/jwt"
	"thinkpath/gatekeeper/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.GET("/no-claims", AdminAuth([]string{"admin_1"}), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	withClaims := func(sub string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserClaims, &jwtpkg.Claims{Subject: sub})
			c.Next()
		}
	}
	r.GET("/admin", withClaims("admin_1"), AdminAuth([]string{" admin_1 ", ""}), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/user", withClaims("user_1"), AdminAuth([]string{"admin_1"}), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/no-claims", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/user", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.CodeForbidden, body.Code)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":"internal_error","detail":"internal server error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/denied", func(c *gin.Context) { c.Status(http.StatusForbidden) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/denied", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusForbidden), entries[1].ContextMap()["status"])
	assert.Equal(t, "/denied", entries[1].ContextMap()["path"])
}

func TestClaimsFromContext(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := ClaimsFromContext(c)
	assert.False(t, ok)

	c.Set(ContextKeyUserClaims, "not claims")
	_, ok = ClaimsFromContext(c)
	assert.False(t, ok)

	c.Set(ContextKeyUserClaims, &jwtpkg.Claims{Subject: "user_1"})
	claims, ok := ClaimsFromContext(c)
	require.True(t, ok)
	assert.Equal(t, "user_1", claims.Subject)
}
