package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Principal is the authenticated caller, resolved by the upstream auth
// gateway and forwarded as headers. Auth issuance itself lives outside this
// service.
type Principal struct {
	UserID string
	Role   string
}

func (p Principal) Admin() bool {
	return p.Role == "admin"
}

const principalKey = "principal"

func principalMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(principalKey, Principal{
			UserID: userID,
			Role:   strings.TrimSpace(c.GetHeader("X-User-Role")),
		})
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentPrincipal(c).Admin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(Principal); ok {
			return p
		}
	}
	return Principal{}
}
