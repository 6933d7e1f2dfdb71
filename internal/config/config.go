package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/i474232898/quake-proxy/internal/logging"
)

var validate = validator.New()

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// Earthquake feed.
	FeedURL         string        `validate:"required,url"`
	RefreshInterval time.Duration `validate:"gt=0"`

	// UpstreamTimeout bounds every outbound call.
	UpstreamTimeout time.Duration `validate:"gt=0"`

	// Geocoding. Google is used when GoogleAPIKey is set, Nominatim otherwise.
	GeocoderURL       string `validate:"required,url"`
	GeocoderUserAgent string `validate:"required"`
	GeocoderCountry   string `validate:"omitempty,alpha,len=2"`
	GoogleAPIKey      string

	DefaultRadiusKm float64 `validate:"gt=0"`

	CORSAllowOrigins string `validate:"required"`

	// Generative AI proxy.
	AIAPIURL     string `validate:"required,url"`
	AIAPIKey     string
	AIModel      string `validate:"required"`
	AskRateLimit int    `validate:"gte=0"` // requests per minute per client, 0 = unlimited

	// Evacuation plan email.
	MailAPIURL string `validate:"required,url"`
	MailAPIKey string
	MailFrom   string `validate:"required"`

	LogLevel  string `validate:"omitempty,oneof=trace debug info warn warning error disabled"`
	LogFormat string `validate:"omitempty,oneof=json console"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Err(err).Msg("config: no .env file loaded")
	}
	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.FeedURL = getenvDefault("FEED_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson")
	if cfg.RefreshInterval, err = getenvDuration("FEED_REFRESH_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getenvDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	cfg.GeocoderURL = getenvDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org/search")
	cfg.GeocoderUserAgent = getenvDefault("GEOCODER_USER_AGENT", "quake-proxy/1.0")
	cfg.GeocoderCountry = strings.ToLower(os.Getenv("GEOCODER_COUNTRY"))
	cfg.GoogleAPIKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	if cfg.DefaultRadiusKm, err = getenvFloat("DEFAULT_RADIUS_KM", 100); err != nil {
		return nil, err
	}

	cfg.CORSAllowOrigins = getenvDefault("CORS_ALLOW_ORIGINS", "*")

	cfg.AIAPIURL = getenvDefault("AI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models/{model}:generateContent")
	cfg.AIAPIKey = os.Getenv("AI_API_KEY")
	cfg.AIModel = getenvDefault("AI_MODEL", "gemini-1.5-flash")
	cfg.AskRateLimit = getenvInt("ASK_RATE_LIMIT", 20)

	cfg.MailAPIURL = getenvDefault("MAIL_API_URL", "https://api.resend.com/emails")
	cfg.MailAPIKey = os.Getenv("MAIL_API_KEY")
	cfg.MailFrom = getenvDefault("MAIL_FROM", "noreply@example.com")

	cfg.LogLevel = strings.ToLower(getenvDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getenvDefault("LOG_FORMAT", "json"))

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
