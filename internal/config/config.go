package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config chứa toàn bộ application configuration
// Struct này được populate từ environment variables
type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
	VNPay    VNPayConfig
	Momo     MomoConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	LogLevel    string

	ShutdownTimeout time.Duration // thời gian chờ request + popup attempt khi tắt server
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
	PoolSize int // mỗi subscription pub/sub giữ thêm một connection riêng ngoài pool
}

// =====================================================
// CHECKOUT CONFIGURATION
// =====================================================

type CheckoutConfig struct {
	PaymentAPI     string        // POST endpoint tạo payment
	PaymentInfoAPI string        // GET endpoint tra cứu payment theo session_id
	TemplateURL    string        // URL của payment_success.html, rỗng = dùng bản embed
	HTTPTimeout    time.Duration // timeout cho backend + template fetch
	PollInterval   time.Duration // chu kỳ kiểm tra popup đã đóng chưa
	AttemptTimeout time.Duration // thời gian tối đa một popup attempt
	SessionTTL     time.Duration // TTL của page state trong redis

	DisplayTimezone    string // timezone hiển thị thời gian thanh toán
	PackedDateTimezone string // timezone dùng để dựng vnp_PayDate (YYYYMMDDHHmmss)

	// ResetClearsSelection: goBack có xoá Selection State hay không
	ResetClearsSelection bool

	// Products: "id:price,id:price" - giá trị data-price của từng option
	Products string

	CookieSecure bool
}

type VNPayConfig struct {
	TmnCode    string // Merchant Code, khác rỗng thì vnp_TmnCode của return URL phải khớp
	HashSecret string // Secret key for HMAC-SHA512, rỗng = không verify return URL
}

type MomoConfig struct {
	PartnerCode string // khác rỗng thì partnerCode của return URL phải khớp
	AccessKey   string
	SecretKey   string // Secret Key for HMAC-SHA256, rỗng = không verify return URL
}

// Load đọc config từ environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Demo Payment Checkout"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),

			ShutdownTimeout: getEnvDuration("APP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		Checkout: CheckoutConfig{
			PaymentAPI:           getEnv("CHECKOUT_PAYMENT_API", "https://backend-demo-payment.onrender.com/api/payment"),
			PaymentInfoAPI:       getEnv("CHECKOUT_PAYMENT_INFO_API", "https://backend-demo-payment.onrender.com/api/payment-info"),
			TemplateURL:          getEnv("CHECKOUT_TEMPLATE_URL", ""),
			HTTPTimeout:          getEnvDuration("CHECKOUT_HTTP_TIMEOUT", 30*time.Second),
			PollInterval:         getEnvDuration("CHECKOUT_POLL_INTERVAL", time.Second),
			AttemptTimeout:       getEnvDuration("CHECKOUT_ATTEMPT_TIMEOUT", 30*time.Minute),
			SessionTTL:           getEnvDuration("CHECKOUT_SESSION_TTL", 24*time.Hour),
			DisplayTimezone:      getEnv("CHECKOUT_DISPLAY_TZ", "Asia/Bangkok"),
			PackedDateTimezone:   getEnv("CHECKOUT_PACKED_DATE_TZ", "Local"),
			ResetClearsSelection: getEnvBool("CHECKOUT_RESET_CLEARS_SELECTION", true),
			Products:             getEnv("CHECKOUT_PRODUCTS", "basic:10000,standard:50000,premium:100000"),
			CookieSecure:         getEnvBool("CHECKOUT_COOKIE_SECURE", false),
		},
		VNPay: VNPayConfig{
			TmnCode:    getEnv("VNPAY_TMN_CODE", ""),
			HashSecret: getEnv("VNPAY_HASH_SECRET", ""),
		},
		Momo: MomoConfig{
			PartnerCode: getEnv("MOMO_PARTNER_CODE", ""),
			AccessKey:   getEnv("MOMO_ACCESS_KEY", ""),
			SecretKey:   getEnv("MOMO_SECRET_KEY", ""),
		},
	}

	// Validate critical config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate kiểm tra config có hợp lệ không
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Checkout.PaymentAPI) == "" {
		return fmt.Errorf("CHECKOUT_PAYMENT_API must be set")
	}
	if strings.TrimSpace(c.Checkout.PaymentInfoAPI) == "" {
		return fmt.Errorf("CHECKOUT_PAYMENT_INFO_API must be set")
	}
	if c.Checkout.PollInterval <= 0 {
		return fmt.Errorf("CHECKOUT_POLL_INTERVAL must be positive")
	}
	if c.Checkout.AttemptTimeout < c.Checkout.PollInterval {
		return fmt.Errorf("CHECKOUT_ATTEMPT_TIMEOUT must not be shorter than CHECKOUT_POLL_INTERVAL")
	}

	if c.App.Environment == "production" {
		if !c.Checkout.CookieSecure {
			return fmt.Errorf("CHECKOUT_COOKIE_SECURE must be true in production")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration nhận Go duration ("1s", "30m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
