package config

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"rizqara-backend/internal/domain"
)

const defaultJWTSecret = "default_secret_CHANGE_ME"

type Config struct {
	Port               string
	Env                string
	LogLevel           string
	StorageDriver      string // postgres | memory
	DBUrl              string
	JWTSecret          string
	AllowedOrigin      string
	FrontendURL        string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	// DB Config
	DBMaxConns        int32
	DBMinConns        int32
	DBMaxConnIdleTime time.Duration
	DBAutoMigrate     bool
	// R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2AccessKeySecret string
	R2BucketName      string
	R2PublicURL       string
	// Upload Configuration
	MaxUploadSizeMB int64
	R2UploadTimeout time.Duration
	// Rate limiting
	RateLimitPerSecond float64
	RateLimitBurst     int
	// Business Rules
	MaxCartQuantity         int
	AutoBanFailedDeliveries int
	Delivery                domain.DeliveryRules
	PricingFile             string
	IdempotencyTTL          time.Duration
	StatsCacheTTL           time.Duration
	// OTP
	OTPExpiry      time.Duration
	OTPResendAfter time.Duration
	OTPMaxAttempts int
	// Courier (Steadfast)
	CourierBaseURL   string
	CourierAPIKey    string
	CourierSecretKey string
	CourierTimeout   time.Duration
	CourierNote      string
	// Webhooks
	SMSWebhookToken     string
	CourierWebhookToken string
	// Notifications
	EmailProvider     string // postmark | sendgrid | log
	EmailFrom         string
	EmailFromName     string
	PostmarkToken     string
	SendGridAPIKey    string
	NotifyWorkers     int
	NotifyQueueSize   int
	NotifySendTimeout time.Duration
	// Facebook Conversions API
	FacebookPixelID     string
	FacebookAccessToken string
	FacebookTestCode    string
	FacebookAPIVersion  string
}

func LoadConfig() *Config {
	configFile := os.Getenv("CONFIG_FILE")
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			log.Printf("Warning: Failed to load config file '%s': %v", configFile, err)
		} else {
			log.Printf("Loaded configuration from %s", configFile)
		}
	} else {
		// A missing .env is normal in containers; system env vars are used instead.
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found or error loading it, relying on system env vars")
		}
	}

	cfg := FromEnv()

	if cfg.PricingFile != "" {
		rules, err := LoadDeliveryRules(cfg.PricingFile, cfg.Delivery)
		if err != nil {
			log.Fatalf("CRITICAL: %v", err)
		}
		cfg.Delivery = rules
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("WARNING: Using default JWT secret. Setting up for failure in production.")
	}
	return cfg
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() *Config {
	defaults := domain.DefaultDeliveryRules()
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		StorageDriver:      getEnv("STORAGE_DRIVER", "postgres"),
		DBUrl:              getEnv("DB_DSN", ""),
		JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
		AccessTokenExpiry:  getDurationEnv("ACCESS_TOKEN_EXPIRY", time.Hour*24),
		RefreshTokenExpiry: getDurationEnv("REFRESH_TOKEN_EXPIRY", time.Hour*24*7),

		DBMaxConns:        getInt32Env("DB_MAX_CONNS", 50),
		DBMinConns:        getInt32Env("DB_MIN_CONNS", 10),
		DBMaxConnIdleTime: getDurationEnv("DB_MAX_CONN_IDLE_TIME", time.Minute*15),
		DBAutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", true),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2AccessKeySecret: getEnv("R2_ACCESS_KEY_SECRET", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		MaxUploadSizeMB: getInt64Env("MAX_UPLOAD_SIZE_MB", 10),
		R2UploadTimeout: getDurationEnv("R2_UPLOAD_TIMEOUT", 30*time.Second),

		RateLimitPerSecond: getFloatEnv("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 50),

		MaxCartQuantity:         getIntEnv("MAX_CART_QUANTITY", 100),
		AutoBanFailedDeliveries: getIntEnv("AUTO_BAN_FAILED_DELIVERIES", 5),
		Delivery: domain.DeliveryRules{
			LowChargeDistricts: getListEnv("DELIVERY_LOW_CHARGE_DISTRICTS", defaults.LowChargeDistricts),
			LowFee:             getFloatEnv("DELIVERY_LOW_FEE", defaults.LowFee),
			HighFee:            getFloatEnv("DELIVERY_HIGH_FEE", defaults.HighFee),
		},
		PricingFile:    getEnv("PRICING_FILE", ""),
		IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		StatsCacheTTL:  getDurationEnv("STATS_CACHE_TTL", 5*time.Minute),

		OTPExpiry:      getDurationEnv("OTP_EXPIRY", 5*time.Minute),
		OTPResendAfter: getDurationEnv("OTP_RESEND_AFTER", time.Minute),
		OTPMaxAttempts: getIntEnv("OTP_MAX_ATTEMPTS", 5),

		CourierBaseURL:   getEnv("STEADFAST_BASE_URL", "https://portal.packzy.com/api/v1"),
		CourierAPIKey:    getEnv("STEADFAST_API_KEY", ""),
		CourierSecretKey: getEnv("STEADFAST_SECRET_KEY", ""),
		CourierTimeout:   getDurationEnv("STEADFAST_TIMEOUT", 15*time.Second),
		CourierNote:      getEnv("STEADFAST_DEFAULT_NOTE", "Premium Order"),

		SMSWebhookToken:     getEnv("SMS_WEBHOOK_TOKEN", ""),
		CourierWebhookToken: getEnv("COURIER_WEBHOOK_TOKEN", ""),

		EmailProvider:     getEnv("EMAIL_PROVIDER", "log"),
		EmailFrom:         getEnv("EMAIL_FROM", "no-reply@rizqara.shop"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "RizQara Shop"),
		PostmarkToken:     getEnv("POSTMARK_SERVER_TOKEN", ""),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		NotifyWorkers:     getIntEnv("NOTIFY_WORKERS", 4),
		NotifyQueueSize:   getIntEnv("NOTIFY_QUEUE_SIZE", 256),
		NotifySendTimeout: getDurationEnv("NOTIFY_SEND_TIMEOUT", 10*time.Second),

		FacebookPixelID:     getEnv("FB_PIXEL_ID", ""),
		FacebookAccessToken: getEnv("FB_ACCESS_TOKEN", ""),
		FacebookTestCode:    getEnv("FB_TEST_EVENT_CODE", ""),
		FacebookAPIVersion:  getEnv("FB_API_VERSION", "v21.0"),
	}
}

func (c *Config) IsProduction() bool { return c.Env == "production" }

func (c *Config) Validate() error {
	var errs []error
	switch c.StorageDriver {
	case "postgres":
		if c.DBUrl == "" {
			errs = append(errs, errors.New("DB_DSN environment variable is required"))
		}
	case "memory":
		if c.IsProduction() {
			errs = append(errs, errors.New("STORAGE_DRIVER=memory is not allowed in production"))
		}
	default:
		errs = append(errs, errors.New("STORAGE_DRIVER must be postgres or memory"))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.Delivery.LowFee < 0 || c.Delivery.HighFee < 0 {
		errs = append(errs, errors.New("delivery fees cannot be negative"))
	}
	if c.AutoBanFailedDeliveries < domain.HighRiskFailedDeliveries {
		errs = append(errs, errors.New("AUTO_BAN_FAILED_DELIVERIES cannot be below the high-risk threshold"))
	}
	switch c.EmailProvider {
	case "postmark":
		if c.PostmarkToken == "" {
			errs = append(errs, errors.New("POSTMARK_SERVER_TOKEN is required for EMAIL_PROVIDER=postmark"))
		}
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required for EMAIL_PROVIDER=sendgrid"))
		}
	case "log":
	default:
		errs = append(errs, errors.New("EMAIL_PROVIDER must be postmark, sendgrid or log"))
	}
	return errors.Join(errs...)
}
