package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the safety service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - HTTPPort: The port for the public API and websocket endpoint.
// - HealthPort: The port for the health and metrics server.
// - Overpass: Settings of the amenity source.
// - Monitor: Settings of the background monitoring loops.
// - Geolocation: Settings of the IP geolocation providers.
// - Database: Optional PostgreSQL database holding baseline overrides.
type Config struct {
	Env         string // Env is the current environment: local, development, production.
	HTTPPort    int    // HTTPPort is the API server port.
	HealthPort  int    // HealthPort is the monitoring server port.
	Overpass    OverpassConfig
	Monitor     MonitorConfig
	Geolocation GeolocationConfig
	Database    PostgresConfig // Database holds the postgres database configuration
}

// OverpassConfig holds the settings of the Overpass amenity source.
type OverpassConfig struct {
	URL      string        // URL is the interpreter endpoint.
	Timeout  time.Duration // Timeout bounds a single query.
	Parallel int           // Parallel caps concurrent queries.
}

// MonitorConfig holds the timing of monitoring sessions.
type MonitorConfig struct {
	Interval   time.Duration
	RetryDelay time.Duration
}

// GeolocationConfig holds the IP geolocation settings.
type GeolocationConfig struct {
	Providers []string      // Providers in priority order.
	Timeout   time.Duration // Timeout for a single provider request.
	RateLimit int           // RateLimit is requests per second per provider.
	APIKey    string        // APIKey for the Google provider.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// Enabled reports whether a database host was configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

var defaults = map[string]string{
	"PADDOS_ENV":               "production",
	"PADDOS_HTTP_PORT":         "5000",
	"PADDOS_HEALTH_PORT":       "8080",
	"PADDOS_OVERPASS_URL":      "https://overpass-api.de/api/interpreter",
	"PADDOS_OVERPASS_TIMEOUT":  "15s",
	"PADDOS_OVERPASS_PARALLEL": "6",
	"PADDOS_MONITOR_INTERVAL":  "30s",
	"PADDOS_MONITOR_RETRY":     "5s",
	"PADDOS_GEO_PROVIDERS":     "ipapi,ipapicom",
	"PADDOS_GEO_TIMEOUT":       "5s",
	"PADDOS_GEO_RATE_LIMIT":    "1",
	"PADDOS_GOOGLE_API_KEY":    "",
	"DB_HOST":                  "",
	"DB_PORT":                  "5432",
	"DB_USERNAME":              "",
	"DB_PASSWORD":              "",
	"DB_NAME":                  "",
}

// MustLoad loads the configuration from the environment and an optional YAML file
// named by PADDOS_CONFIG. Environment variables take precedence over the file.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := v.GetString("PADDOS_CONFIG"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			panic("failed to read configuration file: " + err.Error())
		}
	}

	return &Config{
		Env:        v.GetString("PADDOS_ENV"),
		HTTPPort:   mustInt(v, "PADDOS_HTTP_PORT", "failed to parse port for API server from configuration"),
		HealthPort: mustInt(v, "PADDOS_HEALTH_PORT", "failed to parse port for monitoring server from configuration"),
		Overpass: OverpassConfig{
			URL:      v.GetString("PADDOS_OVERPASS_URL"),
			Timeout:  mustDuration(v, "PADDOS_OVERPASS_TIMEOUT", "failed to parse overpass timeout from configuration"),
			Parallel: mustInt(v, "PADDOS_OVERPASS_PARALLEL", "failed to parse overpass parallelism, must be an integer"),
		},
		Monitor: MonitorConfig{
			Interval:   mustDuration(v, "PADDOS_MONITOR_INTERVAL", "failed to parse monitor interval from configuration"),
			RetryDelay: mustDuration(v, "PADDOS_MONITOR_RETRY", "failed to parse monitor retry delay from configuration"),
		},
		Geolocation: GeolocationConfig{
			Providers: splitList(v.GetString("PADDOS_GEO_PROVIDERS")),
			Timeout:   mustDuration(v, "PADDOS_GEO_TIMEOUT", "failed to parse geolocation timeout from configuration"),
			RateLimit: mustInt(v, "PADDOS_GEO_RATE_LIMIT", "failed to parse geolocation rate limit, must be an integer"),
			APIKey:    v.GetString("PADDOS_GOOGLE_API_KEY"),
		},
		Database: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
	}
}

func mustInt(v *viper.Viper, key, msg string) int {
	value, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		panic(msg)
	}

	return value
}

func mustDuration(v *viper.Viper, key, msg string) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || value <= 0 {
		panic(msg)
	}

	return value
}

func splitList(raw string) []string {
	var items []string
	for item := range strings.SplitSeq(raw, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			items = append(items, item)
		}
	}

	return items
}
