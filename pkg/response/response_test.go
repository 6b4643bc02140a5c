package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestError_AbortsWithBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Forbidden(c, CodeNotAuthorized, "no account")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"code":"not_authorized","detail":"no account"}`, w.Body.String())
}

func TestOK_WritesPlainPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, gin.H{"status": "created"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":"created"}`, w.Body.String())
}
