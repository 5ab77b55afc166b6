package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config reúne la configuración de la consola (web y CLI).
type Config struct {
	APIBaseURL     string
	Port           string
	HTTPTimeout    time.Duration // 0 = sin timeout
	SessionBackend string        // "memory" o "mysql"
	SessionTTL     time.Duration
	SessionFile    string
	DownloadDir    string
	CookieSecure   bool

	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string
	DBSkipSchema bool
}

const (
	defaultAPIBaseURL     = "http://localhost:8000/api/v1"
	defaultPort           = "8080"
	defaultSessionBackend = "memory"
	defaultSessionTTL     = 24 * time.Hour
	defaultDownloadDir    = "./descargas"
)

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		APIBaseURL:     defaultAPIBaseURL,
		Port:           defaultPort,
		SessionBackend: defaultSessionBackend,
		SessionTTL:     defaultSessionTTL,
		SessionFile:    defaultSessionFile(),
		DownloadDir:    defaultDownloadDir,
		DBHost:         "127.0.0.1",
		DBPort:         "3306",
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️  No se pudo leer .env: %v", err)
	}

	cfg := Default()
	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuración inválida: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfEnv(&cfg.APIBaseURL, "CATALOG_API_URL")
	setIfEnv(&cfg.Port, "PORT")
	setIfEnv(&cfg.SessionBackend, "SESSION_BACKEND")
	setIfEnv(&cfg.SessionFile, "SESSION_FILE")
	setIfEnv(&cfg.DownloadDir, "DOWNLOAD_DIR")
	setIfEnv(&cfg.DBUser, "DB_USER")
	setIfEnv(&cfg.DBPass, "DB_PASS")
	setIfEnv(&cfg.DBHost, "DB_HOST")
	setIfEnv(&cfg.DBPort, "DB_PORT")
	setIfEnv(&cfg.DBName, "DB_NAME")

	cfg.APIBaseURL = strings.TrimSuffix(strings.TrimSpace(cfg.APIBaseURL), "/")
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			log.Printf("invalid HTTP_TIMEOUT=%q, using default %s", v, cfg.HTTPTimeout)
		} else {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			log.Printf("invalid SESSION_TTL=%q, using default %s", v, cfg.SessionTTL)
		} else {
			cfg.SessionTTL = d
		}
	}
	cfg.DBSkipSchema = envBool("DB_SKIP_SCHEMA")
	cfg.CookieSecure = envBool("COOKIE_SECURE")
}

// Validate rejects configurations the console cannot start with.
func Validate(cfg *Config) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("CATALOG_API_URL no puede estar vacío")
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return fmt.Errorf("CATALOG_API_URL debe comenzar con http:// o https:// (actual: %q)", cfg.APIBaseURL)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("PORT inválido: %q", cfg.Port)
	}
	switch cfg.SessionBackend {
	case "memory":
	case "mysql":
		if cfg.DBName == "" {
			return fmt.Errorf("SESSION_BACKEND=mysql requiere DB_NAME")
		}
	default:
		return fmt.Errorf("SESSION_BACKEND desconocido: %q (use memory o mysql)", cfg.SessionBackend)
	}
	return nil
}

// DSN builds the MySQL data source name for the session store.
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4,utf8", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func setIfEnv(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	return strings.EqualFold(v, "true") || v == "1"
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".catalog-console-session.json"
	}
	return filepath.Join(home, ".catalog-console", "session.json")
}
