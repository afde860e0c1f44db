package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string // postgres URL or "sqlite:<path>"
	RedisURL            string
	SessionSecret       string
	JWTSecret           string
	JWTAccessTTL        time.Duration
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	HealthPingURLs      []string
	SendinblueAPIKey    string // SENDINBLUE_API_KEY for validation emails (Brevo)
	MailFrom            string
	PublicBaseURL       string // used to build e-mail validation links
	UploadDir           string
	SupabaseURL         string
	SupabaseSecretKey   string // service_role key, never the anon key
	SupabaseBucket      string
	RateLimitPerMinute  int64
	ReservationDays     int
	MaxImageBytes       int64
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("MAIL_FROM", "noreply@autostand.pt")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("SUPABASE_BUCKET", "listing-images")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 10)
	v.SetDefault("RESERVATION_DEFAULT_DAYS", 7)
	v.SetDefault("MAX_IMAGE_BYTES", 5<<20)

	cfg := &Config{
		Env:                 v.GetString("APP_ENV"),
		Port:                v.GetString("PORT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		RedisURL:            v.GetString("REDIS_URL"),
		SessionSecret:       v.GetString("SESSION_SECRET"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		JWTAccessTTL:        v.GetDuration("JWT_ACCESS_TTL"),
		FrontendURLEndsWith: v.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         v.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(v.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      v.GetString("HEALTH_ADMIN_KEY"),
		HealthPingURLs:      splitList(v.GetString("HEALTH_PING_URLS")),
		SendinblueAPIKey:    v.GetString("SENDINBLUE_API_KEY"),
		MailFrom:            v.GetString("MAIL_FROM"),
		PublicBaseURL:       strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		UploadDir:           v.GetString("UPLOAD_DIR"),
		SupabaseURL:         v.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   v.GetString("SUPABASE_SECRET_KEY"),
		SupabaseBucket:      v.GetString("SUPABASE_BUCKET"),
		RateLimitPerMinute:  v.GetInt64("RATE_LIMIT_PER_MINUTE"),
		ReservationDays:     v.GetInt("RESERVATION_DEFAULT_DAYS"),
		MaxImageBytes:       v.GetInt64("MAX_IMAGE_BYTES"),
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = cfg.SessionSecret
	}
	if cfg.ReservationDays <= 0 {
		cfg.ReservationDays = 7
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
