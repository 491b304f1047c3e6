package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/commpolls/backend/internal/auth"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

type AuthHandler struct {
	users  *service.UserService
	secret []byte
	ttl    time.Duration
}

func NewAuthHandler(users *service.UserService, secret []byte, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, ttl: ttl}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	// Generate JWT token AFTER creating user
	token, err := auth.GenerateToken(h.secret, h.ttl, user)
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithField("user_id", user.ID).Info("👤 User registered")

	c.JSON(http.StatusCreated, models.AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User:    *user,
	})
}

// Login accepts a username or an email
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBind(&input); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), input.Login, input.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := auth.GenerateToken(h.secret, h.ttl, user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    *user,
	})
}
