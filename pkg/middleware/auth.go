package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/campushq/event-service/pkg/response"
)

const (
	// ContextKeyUserID is the gin context key holding the caller's user ID
	ContextKeyUserID = "user_id"
	// ContextKeyRole is the gin context key holding the caller's role
	ContextKeyRole = "role"
)

// Role constants understood by RequireRole
const (
	RoleStudent   = "student"
	RoleOrganizer = "organizer"
	RoleStaff     = "staff"
	RoleAdmin     = "admin"
)

// AuthConfig holds JWT authentication settings
type AuthConfig struct {
	Secret string
	Issuer string
}

// AuthClaims is the token payload issued by the identity service
type AuthClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and stores user_id and role in
// the context for downstream handlers.
func AuthMiddleware(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		claims := &AuthClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
			response.Unauthorized(c, "invalid token issuer")
			c.Abort()
			return
		}
		if claims.UserID == "" {
			response.Unauthorized(c, "token missing user identity")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in the allowed set. Admin
// passes every check.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextKeyRole)
		if role == RoleAdmin {
			c.Next()
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient role")
		c.Abort()
	}
}

// GetUserID extracts the authenticated user ID from gin context
func GetUserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextKeyUserID)
	return id, id != ""
}
