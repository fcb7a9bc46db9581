package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/account-service/internal/core/domain"
	"github.com/arklim/account-service/internal/transport/http/middleware"
)

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse = middleware.ErrorResponse

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	Role           string     `json:"role"`
	Name           *string    `json:"name,omitempty"`
	PhoneNumber    *string    `json:"phone_number,omitempty"`
	ProfilePicture *string    `json:"profile_picture,omitempty"`
	DateOfBirth    *time.Time `json:"date_of_birth,omitempty"`
	Address        *string    `json:"address,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsVerified     bool       `json:"is_verified"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int64      `json:"version"`
}

func newUserResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Role:           string(u.Role),
		Name:           u.Name,
		PhoneNumber:    u.PhoneNumber,
		ProfilePicture: u.ProfilePicture,
		DateOfBirth:    u.DateOfBirth,
		Address:        u.Address,
		IsActive:       u.IsActive,
		IsVerified:     u.IsVerified,
		LastLogin:      u.LastLogin,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		Version:        u.Version,
	}
}

// RegistrationRequest defines the payload for sign-up.
type RegistrationRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"`
	User      UserResponse `json:"user"`
}

// UpdateProfileRequest lists the mutable profile fields. Omitted fields are
// left unchanged; an empty string clears an optional field. Password is only
// decoded so that the handler can refuse it.
type UpdateProfileRequest struct {
	Username       *string    `json:"username"`
	Email          *string    `json:"email"`
	Password       *string    `json:"password" swaggerignore:"true"`
	Name           *string    `json:"name"`
	PhoneNumber    *string    `json:"phone_number"`
	ProfilePicture *string    `json:"profile_picture"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Address        *string    `json:"address"`
}

func (r UpdateProfileRequest) patch() domain.ProfilePatch {
	return domain.ProfilePatch{
		Username:       r.Username,
		Email:          r.Email,
		Name:           r.Name,
		PhoneNumber:    r.PhoneNumber,
		ProfilePicture: r.ProfilePicture,
		DateOfBirth:    r.DateOfBirth,
		Address:        r.Address,
	}
}

// SelfPasswordResetRequest changes the caller's own password.
type SelfPasswordResetRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// AdminPasswordResetRequest resets another account's password. An empty
// new_password asks the server to generate one.
type AdminPasswordResetRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	NewPassword string `json:"new_password"`
}

// AdminPasswordResetResponse returns the password that is now in effect.
type AdminPasswordResetResponse struct {
	Message  string `json:"message"`
	Password string `json:"password"`
}

// HealthResponse describes liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports each dependency check.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func newErrorResponse(c *gin.Context, code int, kind, message string) ErrorResponse {
	return middleware.NewErrorResponse(c, code, kind, message)
}
