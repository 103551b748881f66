package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	SessionCookieName = "dashboard_session"
	SessionHeader     = "X-Session-ID"
	sessionCookieAge  = 24 * 60 * 60
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// SessionMiddleware resolves the dashboard session from the X-Session-ID
// header or the session cookie, issuing a new one when neither is usable.
// Every request leaves with the session id in context and in the cookie.
func SessionMiddleware(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)

		if sessionID == "" {
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				sessionID = cookie
			}
		}

		// Malformed ids are replaced rather than rejected
		if !sessionIDPattern.MatchString(sessionID) {
			sessionID = uuid.New().String()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookieName, sessionID, sessionCookieAge, "/", "", secureCookie, true)
		c.Header(SessionHeader, sessionID)

		c.Set("session_id", sessionID)
		c.Next()
	}
}

// GetSessionID retrieves the session ID from gin context
func GetSessionID(c *gin.Context) string {
	return c.GetString("session_id")
}
