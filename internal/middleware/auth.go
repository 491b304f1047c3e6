package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/commpolls/backend/internal/auth"
	"github.com/emilythestrangee/commpolls/backend/internal/models"
)

const (
	userIDKey = "user_id"
	userKey   = "user"
)

// UserLoader fetches the account a token belongs to.
type UserLoader interface {
	Get(ctx context.Context, id int) (*models.User, error)
}

// AuthMiddleware rejects requests without a valid bearer token. The user is loaded from
// the database on every request so role changes apply to the very next call.
func AuthMiddleware(secret []byte, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticate(c, secret, users)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets anonymous
// requests through. An invalid token is treated as no token.
func OptionalAuth(secret []byte, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := authenticate(c, secret, users); ok {
			setUser(c, user)
		}
		c.Next()
	}
}

// RequireManager must run after AuthMiddleware.
func RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsManager() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Manager access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func authenticate(c *gin.Context, secret []byte, users UserLoader) (*models.User, bool) {
	tokenString := bearerToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		return nil, false
	}

	claims, err := auth.ParseToken(secret, tokenString)
	if err != nil {
		return nil, false
	}

	user, err := users.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, false
	}
	return user, true
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func setUser(c *gin.Context, user *models.User) {
	c.Set(userIDKey, user.ID)
	c.Set(userKey, user)
}
