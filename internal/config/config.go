package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the dashboard service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	AgentEndpoint string
	AgentTimeout  time.Duration

	PollInterval       time.Duration
	SubmitRefreshDelay time.Duration
	ReportRefreshDelay time.Duration

	DraftLogSQLitePath     string
	DraftLogKeepPerArticle int

	NameMinLength    int
	NameMaxLength    int
	URLMaxLength     int
	EmailMaxLength   int
	ContentMaxLength int
	URLDisplayLength int
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	return Config{
		ListenAddr:      getEnv("APP_LISTEN_ADDR", ":8080"),
		ReadTimeout:     time.Duration(getEnvInt("APP_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:    time.Duration(getEnvInt("APP_WRITE_TIMEOUT_SEC", 20)) * time.Second,
		ShutdownTimeout: time.Duration(getEnvInt("APP_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,

		AgentEndpoint: getEnv("APP_AGENT_ENDPOINT", "http://127.0.0.1:8000"),
		AgentTimeout:  time.Duration(getEnvInt("APP_AGENT_TIMEOUT_SEC", 10)) * time.Second,

		PollInterval:       time.Duration(getEnvInt("APP_POLL_INTERVAL_SEC", 30)) * time.Second,
		SubmitRefreshDelay: time.Duration(getEnvInt("APP_SUBMIT_REFRESH_DELAY_MS", 500)) * time.Millisecond,
		ReportRefreshDelay: time.Duration(getEnvInt("APP_REPORT_REFRESH_DELAY_MS", 1000)) * time.Millisecond,

		DraftLogSQLitePath:     getEnv("APP_DRAFT_LOG_SQLITE_PATH", ""),
		DraftLogKeepPerArticle: getEnvInt("APP_DRAFT_LOG_KEEP_PER_ARTICLE", 20),

		NameMinLength:    getEnvInt("APP_NAME_MIN_LENGTH", 2),
		NameMaxLength:    getEnvInt("APP_NAME_MAX_LENGTH", 100),
		URLMaxLength:     getEnvInt("APP_URL_MAX_LENGTH", 2048),
		EmailMaxLength:   getEnvInt("APP_EMAIL_MAX_LENGTH", 254),
		ContentMaxLength: getEnvInt("APP_CONTENT_MAX_LENGTH", 100000),
		URLDisplayLength: getEnvInt("APP_URL_DISPLAY_LENGTH", 50),
	}
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./media-monitoring-ui.env",
		"/etc/default/media-monitoring-ui",
	}

	for _, candidate := range bootstrapCandidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}
		_ = applyEnvDefaultsFromFile(abs)
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/media-monitoring-ui/config.env")

	for _, candidate := range candidates {
		abs := candidate
		if !filepath.IsAbs(candidate) {
			if wd, err := os.Getwd(); err == nil {
				abs = filepath.Join(wd, candidate)
			}
		}

		if err := applyEnvDefaultsFromFile(abs); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("APP_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("APP_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "app-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/media-monitoring-ui/secrets.env")
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.TrimSpace(kv[0])
		val := strings.TrimSpace(kv[1])
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
