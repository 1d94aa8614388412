package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Exchange credentials. Bots created through the API carry their own
	// credentials; these are only a process-wide default.
	APIKey     string
	APISecret  string
	Passphrase string

	RESTHost    string
	HTTPTimeout time.Duration

	// Web interface configuration
	ListenAddr string

	// Logging configuration
	LogFile       string
	LogMaxSize    int // megabytes
	LogMaxBackups int // number of files
	LogMaxAge     int // days
	LogCompress   bool
	LogLevel      int // 0=DEBUG, 1=INFO, 2=WARNING, 3=ERROR

	// Daemon configuration
	DaemonMode bool

	Debug bool
}

// LoadConfig loads configuration from environment variables or uses defaults
func LoadConfig() *Config {
	return &Config{
		APIKey:     getEnv("BITGET_API_KEY", ""),
		APISecret:  getEnv("BITGET_API_SECRET", ""),
		Passphrase: getEnv("BITGET_PASSPHRASE", ""),

		RESTHost: getEnv("BITGET_REST_HOST", "https://api.bitget.com"),
		// No per-call cancellation beyond the transport: a generous ceiling
		// avoids a hung bot while still letting slow order placements finish.
		HTTPTimeout: time.Duration(getEnvAsInt("HTTP_TIMEOUT_SEC", 120)) * time.Second,

		ListenAddr: getEnv("LISTEN_ADDR", "127.0.0.1:8080"),

		LogFile:       getEnv("LOG_FILE", "logs/trading_bot.log"),
		LogMaxSize:    10, // 10 MB
		LogMaxBackups: 5,  // 5 backup files
		LogMaxAge:     30, // 30 days
		LogCompress:   true,
		LogLevel:      getEnvAsInt("LOG_LEVEL", 1), // INFO level

		DaemonMode: getEnvAsBool("DAEMON_MODE", false),

		Debug: getEnvAsBool("DEBUG", false),
	}
}

// getEnvAsBool gets an environment variable as a boolean value
func getEnvAsBool(key string, defaultValue bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	switch value {
	case "true", "1", "yes", "on", "True", "TRUE":
		return true
	default:
		return false
	}
}

func getEnvAsInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
