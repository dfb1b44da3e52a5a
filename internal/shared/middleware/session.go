package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ===================================
// CONSTANTS
// ===================================

const (
	// Cookie settings
	SessionCookieName = "checkout_session"
	SessionMaxAge     = 60 * 60 * 24 // 1 day in seconds

	// Context keys
	ContextKeySessionID = "checkout_session"
)

// ===================================
// MIDDLEWARE CONFIGURATION
// ===================================

// SessionConfig holds configuration for checkout session middleware
type SessionConfig struct {
	CookieDomain   string // "" for current domain
	CookiePath     string // Default: "/"
	CookieSecure   bool   // true for HTTPS only
	CookieSameSite http.SameSite
	MaxAge         int // seconds
}

// DefaultSessionConfig returns secure default configuration
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CookieDomain:   "",
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
		MaxAge:         SessionMaxAge,
	}
}

// ===================================
// CHECKOUT SESSION MIDDLEWARE
// ===================================

// CheckoutSession gắn mỗi trình duyệt với một checkout session
//
// Flow:
// 1. Đọc session id từ cookie
// 2. Không có hoặc không phải UUID -> sinh mới và set cookie
// 3. Set session id vào context cho handler
func CheckoutSession(config SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := getSessionID(c)
		if sessionID == "" {
			sessionID = uuid.NewString()
			setSessionCookie(c, sessionID, config)
		}

		c.Set(ContextKeySessionID, sessionID)
		c.Next()
	}
}

// ===================================
// HELPER FUNCTIONS
// ===================================

// getSessionID retrieves session ID from cookie
func getSessionID(c *gin.Context) string {
	sessionID, err := c.Cookie(SessionCookieName)
	if err != nil || sessionID == "" {
		return ""
	}

	// Validate UUID format for security
	if _, err := uuid.Parse(sessionID); err != nil {
		return ""
	}

	return sessionID
}

// setSessionCookie sets secure session cookie
func setSessionCookie(c *gin.Context, sessionID string, config SessionConfig) {
	c.SetSameSite(config.CookieSameSite)
	c.SetCookie(
		SessionCookieName,
		sessionID,
		config.MaxAge,
		config.CookiePath,
		config.CookieDomain,
		config.CookieSecure,
		true, // httpOnly
	)
}

// GetSessionID retrieves checkout session ID from context
func GetSessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}
