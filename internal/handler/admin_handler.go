package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/model"
	"thinkpath/gatekeeper/internal/service"
	"thinkpath/gatekeeper/pkg/response"
)

type AdminHandler struct {
	inviteService service.InviteService
	logger        *zap.Logger
}

func NewAdminHandler(inviteService service.InviteService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{inviteService: inviteService, logger: logger}
}

type CreateInviteCodesRequest struct {
	Count int    `json:"count" binding:"omitempty,min=1,max=100"`
	Email string `json:"email" binding:"omitempty,email"`
}

type InviteCodesResponse struct {
	InviteCodes []model.InviteCode `json:"invite_codes"`
	EmailSent   *bool              `json:"email_sent,omitempty"`
}

// CreateInviteCodes mints single-use codes, optionally mailing one to Email.
func (h *AdminHandler) CreateInviteCodes(c *gin.Context) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		response.Unauthorized(c, response.CodeUnauthenticated, "invalid user context")
		return
	}

	var req CreateInviteCodesRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body: "+err.Error())
			return
		}
	}

	codes, err := h.inviteService.CreateInviteCodes(c.Request.Context(), req.Count, req.Email)
	if errors.Is(err, service.ErrInviteDelivery) && len(codes) > 0 {
		// The code exists; hand it back so the admin can deliver it another way.
		h.logger.Warn("invite email failed", zap.String("admin", claims.Subject), zap.Error(err))
		sent := false
		response.Created(c, InviteCodesResponse{InviteCodes: codes, EmailSent: &sent})
		return
	}
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	h.logger.Info("invite codes issued", zap.String("admin", claims.Subject), zap.Int("count", len(codes)))
	body := InviteCodesResponse{InviteCodes: codes}
	if req.Email != "" {
		sent := true
		body.EmailSent = &sent
	}
	response.Created(c, body)
}

// ListInviteCodes returns the most recent codes, newest first.
func (h *AdminHandler) ListInviteCodes(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	codes, err := h.inviteService.ListInviteCodes(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.OK(c, InviteCodesResponse{InviteCodes: codes})
}
