package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/usecase"
)

// AuthHandler exposes registration and login.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	log          *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, registration *usecase.RegistrationService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, registration: registration, log: log}
}

// RegisterRoutes binds the public authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.register)
	r.POST("/login", h.login)
}

// Register godoc
// @Summary Register a new user account
// @Description Creates an active account with role user.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RegistrationRequest true "Registration payload"
// @Success 201 {object} UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) register(c *gin.Context) {
	var req RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "invalid registration payload")
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(user))
}

// Login godoc
// @Summary Authenticate with email and password
// @Description Returns a bearer token. Ten failed attempts within a day block further logins for that email.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "code 403001 when blocked by the attempt throttle"
// @Failure 500 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err, "Email and password are required")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		RespondWithError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token.Token,
		TokenType: result.Token.TokenType,
		ExpiresIn: result.Token.ExpiresIn(time.Now()),
		User:      newUserResponse(result.User),
	})
}
