package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/models"
)

const identityKey = "identity"

// RequireAuth resolves the bearer token into an identity and stores it on the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		identity, err := h.Verifier.Verify(c.Request.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireRole rejects identities without role. It must run after RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentIdentity(c).Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) auth.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}
	}
	identity, _ := v.(auth.Identity)
	return identity
}
