package container

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/mthangit/demo-payment/internal/config"
	"github.com/mthangit/demo-payment/internal/domains/checkout/gateway"
	checkoutHandler "github.com/mthangit/demo-payment/internal/domains/checkout/handler"
	"github.com/mthangit/demo-payment/internal/domains/checkout/popup"
	"github.com/mthangit/demo-payment/internal/domains/checkout/repository"
	"github.com/mthangit/demo-payment/internal/domains/checkout/returnurl"
	checkoutService "github.com/mthangit/demo-payment/internal/domains/checkout/service"
	"github.com/mthangit/demo-payment/internal/domains/checkout/view"
	"github.com/mthangit/demo-payment/internal/infrastructure/cache"
	"github.com/mthangit/demo-payment/internal/infrastructure/metrics"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa TẤT CẢ dependencies của application
// Pattern: Service Locator + Dependency Injection
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config   *config.Config
	Redis    *cache.RedisClient
	Registry *prometheus.Registry
	Metrics  *metrics.CheckoutMetrics

	// ========================================
	// REPOSITORY / GATEWAY LAYER
	// ========================================
	PageRepo repository.PageStateRepository
	Backend  *gateway.Client
	Windows  *popup.WindowRegistry
	Notifier *popup.Notifier

	// ========================================
	// SERVICE LAYER (BUSINESS LOGIC)
	// ========================================
	Orchestrator    *popup.Orchestrator
	CheckoutService *checkoutService.CheckoutService

	// ========================================
	// HANDLER LAYER (HTTP)
	// ========================================
	CheckoutHandler *checkoutHandler.CheckoutHandler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer tạo và initialize toàn bộ dependency graph
//
// QUAN TRỌNG: Thứ tự initialization:
// 1. Infrastructure (Redis, metrics) - phụ thuộc Config
// 2. Repositories, gateway - phụ thuộc Infrastructure
// 3. Services - phụ thuộc Repositories
// 4. Handlers - phụ thuộc Services
func NewContainer(cfg *config.Config) (*Container, error) {
	log.Info().Msg("🔧 Initializing DI Container...")

	c := &Container{Config: cfg}

	// ========================================
	// STEP 1: INITIALIZE REDIS
	// ========================================
	// Page state, popup window và pub/sub đều nằm trên Redis -> bắt buộc
	c.Redis = cache.NewRedisClient(cfg.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Redis.Connect(ctx); err != nil {
		_ = c.Redis.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// ========================================
	// STEP 2: METRICS
	// ========================================
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.Metrics = metrics.NewCheckoutMetrics("demo_payment", c.Registry)

	// ========================================
	// STEP 3: REPOSITORIES
	// ========================================
	c.initRepositories()

	// ========================================
	// STEP 4: SERVICES
	// ========================================
	if err := c.initServices(); err != nil {
		_ = c.Redis.Close()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	// ========================================
	// STEP 5: HANDLERS
	// ========================================
	c.CheckoutHandler = checkoutHandler.NewCheckoutHandler(c.CheckoutService)

	log.Info().Msg("🎉 DI Container initialized successfully")
	return c, nil
}

func (c *Container) initRepositories() {
	checkout := c.Config.Checkout
	rdb := c.Redis.Client

	c.PageRepo = repository.NewRedisRepository(rdb, checkout.SessionTTL)
	c.Backend = gateway.NewClient(checkout.PaymentAPI, checkout.PaymentInfoAPI, checkout.HTTPTimeout)
	c.Windows = popup.NewWindowRegistry(rdb, checkout.AttemptTimeout)
	c.Notifier = popup.NewNotifier(rdb)
}

func (c *Container) initServices() error {
	checkout := c.Config.Checkout

	// ----------------------------------------
	// VIEW RENDERER
	// ----------------------------------------
	display, err := returnurl.LoadLocation(checkout.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("invalid CHECKOUT_DISPLAY_TZ: %w", err)
	}
	packed, err := returnurl.LoadLocation(checkout.PackedDateTimezone)
	if err != nil {
		return fmt.Errorf("invalid CHECKOUT_PACKED_DATE_TZ: %w", err)
	}
	renderer := view.NewRenderer(
		view.NewTemplateSource(checkout.TemplateURL, checkout.HTTPTimeout),
		returnurl.NewFormatter(display, packed),
	)
	presenter := checkoutService.NewViewPresenter(renderer, c.PageRepo, c.Metrics)

	// ----------------------------------------
	// POPUP ORCHESTRATOR
	// ----------------------------------------
	verifier := returnurl.Verifier{
		VNPayTmnCode:    c.Config.VNPay.TmnCode,
		VNPayHashSecret: c.Config.VNPay.HashSecret,
		MomoPartnerCode: c.Config.Momo.PartnerCode,
		MomoAccessKey:   c.Config.Momo.AccessKey,
		MomoSecretKey:   c.Config.Momo.SecretKey,
	}
	c.Orchestrator = popup.NewOrchestrator(
		c.Windows,
		c.Notifier,
		popup.NewRecordDeriver(c.Backend, verifier),
		presenter,
		checkout.PollInterval,
	)

	// ----------------------------------------
	// CHECKOUT SERVICE
	// ----------------------------------------
	products, err := checkoutService.ParseCatalog(checkout.Products)
	if err != nil {
		return fmt.Errorf("invalid CHECKOUT_PRODUCTS: %w", err)
	}

	c.CheckoutService = checkoutService.NewCheckoutService(
		c.PageRepo,
		c.Backend,
		c.Orchestrator,
		c.Windows,
		c.Notifier,
		presenter,
		verifier,
		c.Metrics,
		checkoutService.Config{
			Products:             products,
			AttemptTimeout:       checkout.AttemptTimeout,
			ResetClearsSelection: checkout.ResetClearsSelection,
		},
	)

	return nil
}

// ========================================
// HELPER METHODS
// ========================================

// Cleanup dọn dẹp resources khi shutdown
// Thứ tự: attempts đang chờ -> Redis
func (c *Container) Cleanup() {
	log.Info().Msg("🧹 Cleaning up resources...")

	if c.CheckoutService != nil {
		c.CheckoutService.Close()
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis")
		}
	}

	log.Info().Msg("✅ Cleanup completed")
}
