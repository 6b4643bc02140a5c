package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Machine-readable error codes. Clients display Detail.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeTokenExpired    = "token_expired"
	CodeTokenInvalid    = "token_invalid"
	CodeNotAuthorized   = "not_authorized"
	CodeForbidden       = "forbidden"
	CodeInviteInvalid   = "invite_invalid"
	CodeTooManyAttempts = "too_many_attempts"
	CodeBadRequest      = "bad_request"
	CodeInternal        = "internal_error"
)

type ErrorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Error writes the error body and aborts the handler chain.
func Error(c *gin.Context, httpStatus int, code string, detail string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{Code: code, Detail: detail})
}

func BadRequest(c *gin.Context, detail string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, detail)
}

func Unauthorized(c *gin.Context, code string, detail string) {
	Error(c, http.StatusUnauthorized, code, detail)
}

func Forbidden(c *gin.Context, code string, detail string) {
	Error(c, http.StatusForbidden, code, detail)
}

func TooManyRequests(c *gin.Context, detail string) {
	Error(c, http.StatusTooManyRequests, CodeTooManyAttempts, detail)
}

func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
