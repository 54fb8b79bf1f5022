package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string   `json:"AppPort" yaml:"app_port"`
	JWTSecret      string   `json:"JWTSecret" yaml:"jwt_secret"`
	TokenTTLHours  int      `json:"TokenTTLHours" yaml:"token_ttl_hours"`
	AllowedOrigins []string `json:"AllowedOrigins" yaml:"allowed_origins"`
	// Requests per minute per client on mutating routes
	RateLimitPerMinute int `json:"RateLimitPerMinute" yaml:"rate_limit_per_minute"`
	// Gin framework configuration
	GinMode string `json:"GinMode" yaml:"gin_mode"`
	GinPath string `json:"GinPath" yaml:"gin_path"`
	// Database: driver is one of mysql, postgres, sqlite
	DBDriver    string `json:"DBDriver" yaml:"driver"`
	DatabaseURI string `json:"DatabaseURI" yaml:"uri"`
	DBHost      string `json:"DBHost" yaml:"host"`
	DBPort      string `json:"DBPort" yaml:"port"`
	DBUser      string `json:"DBUser" yaml:"user"`
	DBPassword  string `json:"DBPassword" yaml:"password"`
	DBName      string `json:"DBName" yaml:"name"`
	// Redis for author cache and token blacklist; disabled falls back to in-process stores
	RedisEnabled  bool   `json:"RedisEnabled" yaml:"redis_enabled"`
	RedisHost     string `json:"RedisHost" yaml:"redis_host"`
	RedisPort     int    `json:"RedisPort" yaml:"redis_port"`
	RedisDB       int    `json:"RedisDB" yaml:"redis_db"`
	RedisPassword string `json:"RedisPassword" yaml:"redis_password"`
	// Feed
	FeedMaxPageSize     int `json:"FeedMaxPageSize" yaml:"feed_max_page_size"`
	FeedDefaultPageSize int `json:"FeedDefaultPageSize" yaml:"feed_default_page_size"`
	AuthorCacheTTLSec   int `json:"AuthorCacheTTLSec" yaml:"author_cache_ttl_sec"`
	// Logging configuration
	LogLevel      string `json:"LogLevel" yaml:"log_level"`
	LogPath       string `json:"LogPath" yaml:"log_path"`
	LogMaxSizeMB  int    `json:"LogMaxSizeMB" yaml:"log_max_size_mb"`
	LogMaxBackups int    `json:"LogMaxBackups" yaml:"log_max_backups"`
	LogMaxAgeDays int    `json:"LogMaxAgeDays" yaml:"log_max_age_days"`
	LogCompress   bool   `json:"LogCompress" yaml:"log_compress"`
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
// An empty path searches config/config.json and config/config.yaml.
func Load(path string) AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: .env -> config file -> defaults -> environment variable overrides
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to read .env: %v", err)
	}

	if path == "" {
		for _, candidate := range []string{
			filepath.Join("config", "config.json"),
			filepath.Join("config", "config.yaml"),
			filepath.Join("config", "config.yml"),
		} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			log.Fatalf("invalid config file %s: %v", path, err)
		}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load("")
	}
	return cfg
}

// Set replaces the cached configuration after filling defaults.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadFile reads a JSON or YAML config file into out depending on its extension.
func loadFile(path string, out *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAMLConfig(data, out)
	default:
		return loadJSONConfig(data, out)
	}
}

// loadJSONConfig accepts both a flat object and one grouped into app/database/redis/log sections.
func loadJSONConfig(data []byte, out *AppConfig) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	grouped := false
	for _, section := range []string{"app", "database", "redis", "feed", "log"} {
		if body, ok := raw[section]; ok {
			grouped = true
			if err := json.Unmarshal(body, out); err != nil {
				return err
			}
		}
	}
	if grouped {
		return nil
	}
	return json.Unmarshal(data, out)
}

// loadYAMLConfig reads the grouped YAML layout:
//
//	app: {app_port: "8080", jwt_secret: ...}
//	database: {driver: mysql, host: ...}
func loadYAMLConfig(data []byte, out *AppConfig) error {
	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return err
	}
	for _, node := range sections {
		if node.Kind != yaml.MappingNode {
			continue
		}
		if err := node.Decode(out); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "4000"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 24 * 30
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		switch c.DBDriver {
		case "postgres":
			c.DBPort = "5432"
		default:
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "lireddit"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.FeedMaxPageSize == 0 {
		c.FeedMaxPageSize = 100
	}
	if c.FeedDefaultPageSize == 0 {
		c.FeedDefaultPageSize = 10
	}
	if c.AuthorCacheTTLSec == 0 {
		c.AuthorCacheTTLSec = 3600
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_ENABLED", ""); v != "" {
		c.RedisEnabled = v == "true"
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("FEED_MAX_PAGE_SIZE", ""); v != "" {
		c.FeedMaxPageSize = mustParseInt(v)
	}
	if v := getEnv("FEED_DEFAULT_PAGE_SIZE", ""); v != "" {
		c.FeedDefaultPageSize = mustParseInt(v)
	}
	if v := getEnv("AUTHOR_CACHE_TTL_SEC", ""); v != "" {
		c.AuthorCacheTTLSec = mustParseInt(v)
	}
	// Logging env overrides
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
