package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/handler/middleware"
	"thinkpath/gatekeeper/internal/model"
	"thinkpath/gatekeeper/internal/service"
	jwtpkg "thinkpath/gatekeeper/pkg/jwt"
	"thinkpath/gatekeeper/pkg/response"
)

var ErrNoClaims = errors.New("claims not found in context")

const notAuthorizedDetail = "No ThinkPath account found. Please sign up or request access."

func getClaimsFromContext(c *gin.Context) (*jwtpkg.Claims, error) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

// writeServiceError maps service sentinels to responses. Anything unknown is
// logged and rendered as a generic 500.
func writeServiceError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrNotAuthorized):
		response.Forbidden(c, response.CodeNotAuthorized, notAuthorizedDetail)
	case errors.Is(err, service.ErrInviteInvalid):
		response.Error(c, http.StatusBadRequest, response.CodeInviteInvalid, "Invite code is invalid or has already been used.")
	case errors.Is(err, service.ErrTooManyInviteAttempts):
		response.TooManyRequests(c, "Too many invite attempts. Try again later.")
	case errors.Is(err, service.ErrInvalidInviteCount):
		response.BadRequest(c, "count must be between 1 and 100, and 1 when email is set")
	case errors.Is(err, service.ErrMailerNotConfigured):
		response.BadRequest(c, "invite email delivery is not configured")
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c)
	}
}

// UserResponse is the identity projection returned to clients.
type UserResponse struct {
	ID                  string  `json:"id"`
	Subject             string  `json:"subject"`
	Email               *string `json:"email"`
	EmailVerified       bool    `json:"email_verified"`
	OnboardingCompleted bool    `json:"onboarding_completed"`
	NeedsOnboarding     bool    `json:"needs_onboarding"`
	CreatedAt           string  `json:"created_at"`
}

func newUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:                  u.ID.String(),
		Subject:             u.Subject,
		Email:               u.Email,
		EmailVerified:       u.EmailVerified,
		OnboardingCompleted: u.OnboardingCompleted,
		NeedsOnboarding:     u.NeedsOnboarding(),
		CreatedAt:           u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
