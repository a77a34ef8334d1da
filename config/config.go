package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. It is loaded once at startup and
// passed by pointer to the components that need it; nothing mutates it afterwards.
type Config struct {
	Port             string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// External tools
	FFmpegPath    string
	YtDlpPath     string
	SpotDLPath    string
	AudioBitrate  string // e.g., "192k"
	CookiesFile   string // cookie jar handed to yt-dlp
	CookiesBase64 string // YT_COOKIES_BASE64, written to CookiesFile at startup

	// Working area
	WorkDir     string // root of the ephemeral working area
	SourcesDir  string // WorkDir/sources: normalized source WAVs, retained
	DownloadDir string // WorkDir/downloads: raw downloader output
	CacheDir    string // WorkDir/cache: local copies of processed variants

	// Durable store (S3-compatible)
	StorageEndpoint   string
	StorageRegion     string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageBucket     string
	StorageUseSSL     bool
	StoragePublicBase string // public URL prefix; object URL is <base>/<bucket>/<name>

	// Catalog
	DBDriver string // sqlite or mysql
	DBDSN    string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	// Lifecycle
	CleanupWorkers   int
	CleanupQueueSize int
	CleanupDelay     time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration parses values like "90s" or "5m"; bare integers are seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	workDir := getEnv("WORK_DIR", "tmp_audio")
	endpoint := getEnv("STORAGE_ENDPOINT", "127.0.0.1:9000")
	useSSL := getEnvBool("STORAGE_USE_SSL", false)

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Minute),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT", 120*time.Second),

		FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
		YtDlpPath:     getEnv("YTDLP_PATH", "yt-dlp"),
		SpotDLPath:    getEnv("SPOTDL_PATH", "spotdl"),
		AudioBitrate:  getEnv("AUDIO_BITRATE", "192k"),
		CookiesFile:   getEnv("YT_COOKIES_FILE", "cookies.txt"),
		CookiesBase64: os.Getenv("YT_COOKIES_BASE64"),

		WorkDir:     workDir,
		SourcesDir:  filepath.Join(workDir, "sources"),
		DownloadDir: filepath.Join(workDir, "downloads"),
		CacheDir:    filepath.Join(workDir, "cache"),

		StorageEndpoint:   endpoint,
		StorageRegion:     getEnv("STORAGE_REGION", "us-east-1"),
		StorageAccessKey:  os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey:  os.Getenv("STORAGE_SECRET_KEY"),
		StorageBucket:     getEnv("STORAGE_BUCKET", "slowrvb"),
		StorageUseSSL:     useSSL,
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE_URL", defaultPublicBase(endpoint, useSSL)),

		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBDSN:    getEnv("DB_DSN", filepath.Join(workDir, "catalog.db")),

		RedisHost:     os.Getenv("REDIS_HOST"), // empty disables the Redis cache
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisTTL:      getEnvDuration("REDIS_TTL", 24*time.Hour),

		CleanupWorkers:   getEnvInt("CLEANUP_WORKERS", 2),
		CleanupQueueSize: getEnvInt("CLEANUP_QUEUE_SIZE", 256),
		CleanupDelay:     getEnvDuration("CLEANUP_DELAY", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
	return cfg
}

// defaultPublicBase mirrors the Supabase public object pattern when no base is configured.
func defaultPublicBase(endpoint string, useSSL bool) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + strings.TrimSuffix(endpoint, "/") + "/storage/v1/object/public"
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.RedisHost) != ""
}

// Dirs lists the working directories that must exist before serving.
func (c *Config) Dirs() []string {
	return []string{c.WorkDir, c.SourcesDir, c.DownloadDir, c.CacheDir}
}
