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
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string

	SendinblueAPIKey string // SENDINBLUE_API_KEY for moderation emails (Brevo)
	MailFrom         string
	AdminEmail       string
	PublicBaseURL    string // listing links in emails

	MediaBackend      string // "supabase", "r2" or empty
	SupabaseURL       string
	SupabaseSecretKey string // service_role key, not anon key
	MediaBucket       string
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string

	ListingTTLDays      int
	ReportDailyLimit    int
	EventWorkers        int
	EventQueueSize      int
	EventMaxAttempts    int
	EventStream         string // redis stream key; empty disables the stream sink
	ExpirySweepInterval time.Duration
	InteractionRPS      float64
	InteractionBurst    int

	MetricsUsername string
	MetricsPassword string
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAIL_FROM", "noreply@classifieds.local")
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	viper.SetDefault("MEDIA_BUCKET", "listings")
	viper.SetDefault("LISTING_TTL_DAYS", 30)
	viper.SetDefault("REPORT_DAILY_LIMIT", 5)
	viper.SetDefault("EVENT_WORKERS", 2)
	viper.SetDefault("EVENT_QUEUE_SIZE", 256)
	viper.SetDefault("EVENT_MAX_ATTEMPTS", 3)
	viper.SetDefault("EXPIRY_SWEEP_INTERVAL", "15m")
	viper.SetDefault("INTERACTION_RPS", 5)
	viper.SetDefault("INTERACTION_BURST", 10)
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults()

	return &Config{
		Env:                 strings.ToLower(viper.GetString("APP_ENV")),
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),

		SendinblueAPIKey: viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:         viper.GetString("MAIL_FROM"),
		AdminEmail:       viper.GetString("ADMIN_EMAIL"),
		PublicBaseURL:    strings.TrimRight(strings.TrimSpace(viper.GetString("PUBLIC_BASE_URL")), "/"),

		MediaBackend:      strings.ToLower(strings.TrimSpace(viper.GetString("MEDIA_BACKEND"))),
		SupabaseURL:       viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey: viper.GetString("SUPABASE_SECRET_KEY"),
		MediaBucket:       viper.GetString("MEDIA_BUCKET"),
		R2AccountID:       viper.GetString("R2_ACCOUNT_ID"),
		R2AccessKeyID:     viper.GetString("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: viper.GetString("R2_SECRET_ACCESS_KEY"),
		R2Bucket:          viper.GetString("R2_BUCKET"),

		ListingTTLDays:      viper.GetInt("LISTING_TTL_DAYS"),
		ReportDailyLimit:    viper.GetInt("REPORT_DAILY_LIMIT"),
		EventWorkers:        viper.GetInt("EVENT_WORKERS"),
		EventQueueSize:      viper.GetInt("EVENT_QUEUE_SIZE"),
		EventMaxAttempts:    viper.GetInt("EVENT_MAX_ATTEMPTS"),
		EventStream:         viper.GetString("EVENT_STREAM"),
		ExpirySweepInterval: viper.GetDuration("EXPIRY_SWEEP_INTERVAL"),
		InteractionRPS:      viper.GetFloat64("INTERACTION_RPS"),
		InteractionBurst:    viper.GetInt("INTERACTION_BURST"),

		MetricsUsername: viper.GetString("METRICS_USERNAME"),
		MetricsPassword: viper.GetString("METRICS_PASSWORD"),
	}, nil
}
