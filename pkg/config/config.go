package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

var (
	// WordPress layout
	SitePath      = "."
	ContentDir    = "./wp-content"
	Stylesheet    = "blockify"
	HomeURL       = "http://localhost:8080"
	ContentURL    = ""
	UploadsURL    = ""
	UploadsDir    = ""
	StylesheetURI = ""

	// Editor settings
	DatabasePath = "./pattern-editor.db"
	SettingsPath = ""
	FlushCommand = ""

	// Server settings
	ListenAddr    = ":8080"
	SessionSecret = ""
	AdminUsers    []string
	LogLevel      = "info"

	// Git settings
	GitUserEmail = "bot@pattern-editor.local"
	GitUserName  = "Pattern Editor Bot"
	GitBranch    = "main"
	GitRemote    = "origin"

	// EnvFileLoaded reports whether Init found a .env file.
	EnvFileLoaded bool
)

var OauthConf *oauth2.Config

func Init() {
	EnvFileLoaded = godotenv.Load() == nil

	// Helper to get env with default
	getEnv := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	SitePath = getEnv("SITE_PATH", ".")
	ContentDir = getEnv("CONTENT_DIR", filepath.Join(SitePath, "wp-content"))
	Stylesheet = getEnv("STYLESHEET", "blockify")
	HomeURL = strings.TrimRight(getEnv("HOME_URL", "http://localhost:8080"), "/")
	ContentURL = strings.TrimRight(getEnv("CONTENT_URL", HomeURL+"/wp-content"), "/")
	UploadsURL = getEnv("UPLOADS_URL", ContentURL+"/uploads")
	UploadsDir = getEnv("UPLOADS_DIR", filepath.Join(ContentDir, "uploads"))
	StylesheetURI = getEnv("STYLESHEET_URI", HomeURL+"/wp-content/themes/"+Stylesheet)

	DatabasePath = getEnv("DATABASE_PATH", "./pattern-editor.db")
	SettingsPath = getEnv("PATTERN_SETTINGS", "")
	FlushCommand = getEnv("FLUSH_COMMAND", "")

	ListenAddr = getEnv("LISTEN_ADDR", ":8080")
	SessionSecret = getEnv("SESSION_SECRET", "")
	LogLevel = getEnv("LOG_LEVEL", "info")
	AdminUsers = splitList(os.Getenv("ADMIN_USERS"))

	GitUserEmail = getEnv("GIT_USER_EMAIL", "bot@pattern-editor.local")
	GitUserName = getEnv("GIT_USER_NAME", "Pattern Editor Bot")
	GitBranch = getEnv("GIT_BRANCH", "main")
	GitRemote = getEnv("GIT_REMOTE", "origin")

	appURL := GetAppURL()
	OauthConf = &oauth2.Config{
		ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		Scopes:       []string{"repo", "read:user"},
		Endpoint:     github.Endpoint,
		RedirectURL:  getEnv("GITHUB_REDIRECT_URL", appURL+"/auth/callback"),
	}
}

func GetAppURL() string {
	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}
	return appURL
}

// ThemeDir is the active theme's directory on disk.
func ThemeDir() string {
	return filepath.Join(ContentDir, "themes", Stylesheet)
}

// IsAdmin reports whether a GitHub login is granted the manage_options capability.
func IsAdmin(login string) bool {
	for _, u := range AdminUsers {
		if strings.EqualFold(u, login) {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
