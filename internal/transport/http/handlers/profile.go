package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/transport/http/middleware"
	"github.com/arklim/account-service/internal/usecase"
)

const passwordViaProfileMessage = "Password cannot be changed here; use /api/user/reset-password/user"

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	profiles *usecase.ProfileService
	log      *zap.Logger
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *usecase.ProfileService, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{profiles: profiles, log: log}
}

// GetMe godoc
// @Summary Current user profile
// @Tags User
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/user/me [get]
func (h *ProfileHandler) GetMe(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	user, err := h.profiles.GetProfile(c.Request.Context(), principal.ID)
	if err != nil {
		RespondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateMe godoc
// @Summary Update the current user profile
// @Description Applies the supplied fields. The response reflects the stored record and the cached copy is refreshed. A password field is refused; passwords change through the reset endpoints.
// @Tags User
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Fields to change"
// @Success 200 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/user/me [put]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "invalid profile payload")
		return
	}
	if req.Password != nil {
		respondBadRequest(c, passwordViaProfileMessage)
		return
	}

	principal := middleware.GetPrincipal(c)
	user, err := h.profiles.UpdateProfile(c.Request.Context(), principal.ID, req.patch())
	if err != nil {
		RespondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}
