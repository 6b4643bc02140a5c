package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/service"
	"thinkpath/gatekeeper/pkg/response"
)

type AccessHandler struct {
	accessService service.AccessService
	logger        *zap.Logger
}

func NewAccessHandler(accessService service.AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{accessService: accessService, logger: logger}
}

// Me returns the caller's account, provisioning it for allow-listed domains.
func (h *AccessHandler) Me(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, response.CodeUnauthenticated, "invalid user context")
		return
	}

	user, err := h.accessService.Me(c.Request.Context(), claims)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.OK(c, newUserResponse(user))
}

type SignupInviteRequest struct {
	Code string `json:"code" binding:"required,invitecode"`
}

type SignupResponse struct {
	Status service.SignupStatus `json:"status"`
	User   UserResponse         `json:"user"`
}

// SignupInvite creates the caller's account by redeeming an invite code.
func (h *AccessHandler) SignupInvite(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, response.CodeUnauthenticated, "invalid user context")
		return
	}

	var req SignupInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
		// A malformed code matches nothing, but existing accounts still get already_exists.
		req.Code = ""
	}

	user, status, err := h.accessService.RedeemInvite(c.Request.Context(), claims, req.Code)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	body := SignupResponse{Status: status, User: newUserResponse(user)}
	if status == service.SignupCreated {
		response.Created(c, body)
		return
	}
	response.OK(c, body)
}

// CompleteOnboarding marks the caller's onboarding as done. Repeats are no-ops.
func (h *AccessHandler) CompleteOnboarding(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, response.CodeUnauthenticated, "invalid user context")
		return
	}

	user, err := h.accessService.CompleteOnboarding(c.Request.Context(), claims.Subject)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.OK(c, gin.H{"onboarding_completed": user.OnboardingCompleted})
}
