package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// CapManageOptions is the administrator capability every editor route requires.
const CapManageOptions = "manage_options"

const defaultUserInfoURL = "https://api.github.com/user"

// Session keys.
const (
	sessionToken        = "access_token"
	sessionLogin        = "login"
	sessionCapabilities = "capabilities"
	sessionState        = "oauth_state"
)

func isJSONRoute(c *gin.Context) bool {
	p := c.Request.URL.Path
	return strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/blockify/")
}

func AuthRequired(c *gin.Context) {
	session := sessions.Default(c)
	token := session.Get(sessionToken)
	if token == nil {
		if isJSONRoute(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		} else {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
		}
		return
	}
	c.Next()
}

// RequireCapability rejects users whose session lacks capability.
func RequireCapability(capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hasCapability(sessions.Default(c), capability) {
			c.Next()
			return
		}
		if isJSONRoute(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, envelope(false, "Sorry, you are not allowed to do that."))
			return
		}
		c.AbortWithStatus(http.StatusForbidden)
	}
}

func hasCapability(session sessions.Session, capability string) bool {
	caps, _ := session.Get(sessionCapabilities).(string)
	for _, c := range strings.Split(caps, ",") {
		if c == capability {
			return true
		}
	}
	return false
}

func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", nil)
}

func (h *Handler) GithubLogin(c *gin.Context) {
	state := uuid.NewString()
	session := sessions.Default(c)
	session.Set(sessionState, state)
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Session save failed")
		return
	}
	url := h.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	c.Redirect(http.StatusTemporaryRedirect, url)
}

func (h *Handler) AuthCallback(c *gin.Context) {
	session := sessions.Default(c)
	if want, _ := session.Get(sessionState).(string); want == "" || c.Query("state") != want {
		c.String(http.StatusBadRequest, "Invalid OAuth state")
		return
	}

	ctx := c.Request.Context()
	token, err := h.OAuth.Exchange(ctx, c.Query("code"))
	if err != nil {
		h.logger().Warn("oauth exchange failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "OAuth Exchange Failed")
		return
	}

	login, err := h.fetchLogin(c, token)
	if err != nil {
		h.logger().Warn("fetch github user failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to load user")
		return
	}

	var caps []string
	if h.IsAdmin != nil && h.IsAdmin(login) {
		caps = append(caps, CapManageOptions)
	}

	session.Delete(sessionState)
	session.Set(sessionToken, token.AccessToken)
	session.Set(sessionLogin, login)
	session.Set(sessionCapabilities, strings.Join(caps, ","))
	if err := session.Save(); err != nil {
		c.String(http.StatusInternalServerError, "Session save failed")
		return
	}
	h.logger().Info("user logged in", zap.String("login", login), zap.Strings("capabilities", caps))

	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) fetchLogin(c *gin.Context, token *oauth2.Token) (string, error) {
	url := h.UserInfoURL
	if url == "" {
		url = defaultUserInfoURL
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := h.OAuth.Client(c.Request.Context(), token).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user endpoint returned %s", resp.Status)
	}

	var user struct {
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	if user.Login == "" {
		return "", fmt.Errorf("user has no login")
	}
	return user.Login, nil
}

func (h *Handler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/login")
}

func accessToken(c *gin.Context) string {
	token, _ := sessions.Default(c).Get(sessionToken).(string)
	return token
}
