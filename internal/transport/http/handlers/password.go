package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/usecase"
)

const passwordResetMessage = "Password has been reset"

// PasswordHandler exposes the self-service and administrative resets.
type PasswordHandler struct {
	profiles *usecase.ProfileService
	log      *zap.Logger
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(profiles *usecase.ProfileService, log *zap.Logger) *PasswordHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PasswordHandler{profiles: profiles, log: log}
}

// ResetBySelf godoc
// @Summary Change the caller's password
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SelfPasswordResetRequest true "Old and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse "Invalid old password"
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/user/reset-password/user [post]
func (h *PasswordHandler) ResetBySelf(c *gin.Context) {
	var req SelfPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "old_password and new_password are required")
		return
	}

	principal := middleware.GetPrincipal(c)
	if err := h.profiles.ResetPasswordBySelf(c.Request.Context(), principal.ID, req.OldPassword, req.NewPassword); err != nil {
		RespondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: passwordResetMessage})
}

// ResetByAdmin godoc
// @Summary Reset another user's password
// @Description Requires role admin or super. When new_password is omitted a random one is generated and returned.
// @Tags Password
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AdminPasswordResetRequest true "Target user and optional password"
// @Success 200 {object} AdminPasswordResetResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/user/reset-password/admin [post]
func (h *PasswordHandler) ResetByAdmin(c *gin.Context) {
	var req AdminPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "user_id is required")
		return
	}

	password, err := h.profiles.ResetPasswordByAdmin(c.Request.Context(), middleware.GetPrincipal(c), req.UserID, req.NewPassword)
	if err != nil {
		RespondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, AdminPasswordResetResponse{Message: passwordResetMessage, Password: password})
}
