package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newOAuthProvider(t *testing.T, login string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gho_token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"login":"` + login + `"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthRouter(provider *httptest.Server) *gin.Engine {
	h := &Handler{
		OAuth: &oauth2.Config{
			ClientID:     "id",
			ClientSecret: "secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:  provider.URL + "/authorize",
				TokenURL: provider.URL + "/token",
			},
			RedirectURL: "http://localhost/auth/callback",
		},
		UserInfoURL: provider.URL + "/user",
		IsAdmin:     func(login string) bool { return login == "octocat" },
	}
	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("session-secret"))))
	h.Register(r)
	r.GET("/whoami", func(c *gin.Context) {
		s := sessions.Default(c)
		c.JSON(http.StatusOK, gin.H{
			"login":   s.Get(sessionLogin),
			"token":   s.Get(sessionToken),
			"manager": hasCapability(s, CapManageOptions),
		})
	})
	return r
}

// login walks the OAuth flow and returns the session cookies.
func login(t *testing.T, r *gin.Engine) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login/github", nil))
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	authURL, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := authURL.Query().Get("state")
	require.NotEmpty(t, state)
	cookies := w.Result().Cookies()

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state="+url.QueryEscape(state), nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	assert.Equal(t, "/", w.Header().Get("Location"))
	return w.Result().Cookies()
}

func whoami(r *gin.Engine, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOAuthLoginGrantsAdminCapability(t *testing.T) {
	r := newAuthRouter(newOAuthProvider(t, "octocat"))
	w := whoami(r, login(t, r))
	assert.JSONEq(t, `{"login":"octocat","token":"gho_token","manager":true}`, w.Body.String())
}

func TestOAuthLoginWithoutCapability(t *testing.T) {
	r := newAuthRouter(newOAuthProvider(t, "someone"))
	w := whoami(r, login(t, r))
	assert.JSONEq(t, `{"login":"someone","token":"gho_token","manager":false}`, w.Body.String())
}

func TestOAuthCallbackRejectsBadState(t *testing.T) {
	r := newAuthRouter(newOAuthProvider(t, "octocat"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/callback?code=the-code&state=forged", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginPage(t *testing.T) {
	r := newAuthRouter(newOAuthProvider(t, "octocat"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/login/github")
}
