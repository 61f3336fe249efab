package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Cookie store backends
const (
	CookieStoreFile  = "file"
	CookieStoreRedis = "redis"
)

// Config holds all service configuration
type Config struct {
	// Account and recipient
	Username   string
	Password   string
	TargetUser string
	BaseURL    string

	// Files
	MessagesFile   string
	LogFile        string
	ScreenshotsDir string
	CookiesFile    string

	// Cookie persistence
	CookieStore   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CookieTTL     time.Duration

	// Browser configuration
	ChromiumPath string
	Headless     bool
	WindowWidth  int
	WindowHeight int

	// Fixed delays
	SettleDelay      time.Duration
	LoginSettleDelay time.Duration
	ManualLoginDelay time.Duration

	// Daemon mode
	ServerPort string
	Schedule   string

	LogLevel string
}

// Load reads configuration from environment variables.
// Credentials are not checked here; a run refuses to start without them.
func Load() (*Config, error) {
	cfg := &Config{
		Username:   os.Getenv("TIKTOK_USERNAME"),
		Password:   os.Getenv("TIKTOK_PASSWORD"),
		TargetUser: os.Getenv("TARGET_USER"),
		BaseURL:    strings.TrimSuffix(getEnv("TIKTOK_BASE_URL", "https://www.tiktok.com"), "/"),

		MessagesFile:   getEnv("MESSAGES_FILE", "messages.json"),
		LogFile:        getEnv("LOG_FILE", "tiktok_automation.log"),
		ScreenshotsDir: getEnv("SCREENSHOTS_DIR", "screenshots"),
		CookiesFile:    getEnv("COOKIES_FILE", "tiktok_cookies.json"),

		CookieStore:   strings.ToLower(getEnv("COOKIE_STORE", CookieStoreFile)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CookieTTL:     getEnvAsDuration("COOKIE_TTL", 30*24*time.Hour),

		ChromiumPath: os.Getenv("CHROMIUM_PATH"),
		Headless:     getEnvAsBool("HEADLESS", false),
		WindowWidth:  getEnvAsInt("WINDOW_WIDTH", 1920),
		WindowHeight: getEnvAsInt("WINDOW_HEIGHT", 1080),

		SettleDelay:      getEnvAsDuration("SETTLE_DELAY", 3*time.Second),
		LoginSettleDelay: getEnvAsDuration("LOGIN_SETTLE_DELAY", 10*time.Second),
		ManualLoginDelay: getEnvAsDuration("MANUAL_LOGIN_DELAY", 60*time.Second),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		Schedule:   getEnv("SCHEDULE", "0 9 * * *"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	switch c.CookieStore {
	case CookieStoreFile:
		if c.CookiesFile == "" {
			return fmt.Errorf("COOKIES_FILE cannot be empty")
		}
	case CookieStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR cannot be empty")
		}
	default:
		return fmt.Errorf("COOKIE_STORE must be %q or %q, got %q", CookieStoreFile, CookieStoreRedis, c.CookieStore)
	}
	if c.MessagesFile == "" {
		return fmt.Errorf("MESSAGES_FILE cannot be empty")
	}
	if c.ScreenshotsDir == "" {
		return fmt.Errorf("SCREENSHOTS_DIR cannot be empty")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.WindowWidth, c.WindowHeight)
	}
	return nil
}

// ValidateSchedule checks SCHEDULE. Only daemon mode reads it.
func (c *Config) ValidateSchedule() error {
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("SCHEDULE is not a valid cron expression: %w", err)
	}
	return nil
}

// MissingCredentials lists the required identifiers that are not set.
func (c *Config) MissingCredentials() []string {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "TIKTOK_USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "TIKTOK_PASSWORD")
	}
	if c.TargetUser == "" {
		missing = append(missing, "TARGET_USER")
	}
	return missing
}

func getEnv(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	boolVal, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return boolVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return duration
}

// FindChromium resolves the browser binary: customPath when set, otherwise
// the first executable among the common install locations for this OS.
func FindChromium(customPath string) (string, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return "", fmt.Errorf("chromium binary not found at path: %s", customPath)
		}
		if !isExecutable(customPath) {
			return "", fmt.Errorf("chromium binary found but not executable: %s", customPath)
		}
		return customPath, nil
	}

	currentOS := runtime.GOOS
	for _, path := range getChromiumPaths(currentOS) {
		if fileExists(path) && isExecutable(path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("chromium not found in common paths for %s, set CHROMIUM_PATH environment variable", currentOS)
}

// getChromiumPaths returns common Chromium installation paths based on OS.
func getChromiumPaths(operatingSystem string) []string {
	switch operatingSystem {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium-browser",
			"/usr/bin/chromium",
			"/snap/bin/chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}
	return []string{}
}
