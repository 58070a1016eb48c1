package middleware

import (
	"net/http"
	"strings"
	"time"

	"assetdesk/internal/access"
	"assetdesk/internal/auth"
	"assetdesk/internal/model"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AccessTokenCookie is the cookie login sets and logout clears.
	AccessTokenCookie = "access_token"

	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

func cookieSecurity() (http.SameSite, bool) {
	// Production (cross-origin): SameSiteNoneMode + Secure=true
	// Development (same-site):   SameSiteLaxMode  + Secure=false
	if gin.Mode() == gin.ReleaseMode {
		return http.SameSiteNoneMode, true
	}
	return http.SameSiteLaxMode, false
}

// SetTokenCookie stores the access token as an HttpOnly cookie living as long as the token
func SetTokenCookie(c *gin.Context, accessToken string, ttl time.Duration) {
	sameSite, secure := cookieSecurity()
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, accessToken, int(ttl.Seconds()), "/", "", secure, true)
}

// ClearTokenCookie removes the access_token cookie
func ClearTokenCookie(c *gin.Context) {
	sameSite, secure := cookieSecurity()
	c.SetSameSite(sameSite)
	c.SetCookie(AccessTokenCookie, "", -1, "/", "", secure, true)
}

// bearerToken reads the Authorization header, falling back to the access_token cookie.
func bearerToken(c *gin.Context) (string, string) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", "Invalid authorization format. Expected 'Bearer <token>'"
		}
		return parts[1], ""
	}
	if tokenString, err := c.Cookie(AccessTokenCookie); err == nil && tokenString != "" {
		return tokenString, ""
	}
	return "", "Authorization is missing"
}

func authenticate(c *gin.Context, tokens *auth.TokenManager) bool {
	tokenString, problem := bearerToken(c)
	if problem != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(problem))
		return false
	}

	identity, err := tokens.Parse(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Invalid or expired token"))
		return false
	}

	c.Set(ContextUserID, identity.UserID)
	c.Set(ContextUserRole, identity.Role)
	return true
}

func authorize(c *gin.Context, op access.Operation) bool {
	identity, ok := CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error("Authorization is missing"))
		return false
	}
	if !access.Allowed(identity.Role, op) {
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error("Access denied: insufficient permissions"))
		return false
	}
	return true
}

// Gate guards routes with the static permission matrix
type Gate struct {
	tokens *auth.TokenManager
}

func NewGate(tokens *auth.TokenManager) *Gate {
	return &Gate{tokens: tokens}
}

// Require authenticates the caller and checks that its role may perform op.
// The role is taken from the token, not looked up again. Denied requests
// never reach the handler.
func (g *Gate) Require(op access.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c, g.tokens) || !authorize(c, op) {
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the caller set by Gate.Require.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	id, ok := c.Get(ContextUserID)
	if !ok {
		return auth.Identity{}, false
	}
	userID, ok := id.(uuid.UUID)
	if !ok {
		return auth.Identity{}, false
	}
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(model.Role)
	return auth.Identity{UserID: userID, Role: r}, true
}
