package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKey is where the gate stores the authenticated admin id.
const ContextKey = "adminID"

// RequireSession gates a route group on a valid session cookie. Browser
// requests are redirected to the login page; API requests get a 401 so the
// client-side widgets can surface the failure.
func RequireSession(auth *Auth, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			reject(c, loginPath)
			return
		}
		adminID, err := auth.VerifySession(token)
		if err != nil {
			reject(c, loginPath)
			return
		}
		c.Set(ContextKey, adminID)
		c.Next()
	}
}

func reject(c *gin.Context, loginPath string) {
	if wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Redirect(http.StatusSeeOther, loginPath)
	c.Abort()
}

func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/admin/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
