package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/NYTimes/gziphandler"
	"golang.org/x/time/rate"

	"rizqara-backend/config"
	"rizqara-backend/internal/delivery/http/middleware"
	v1 "rizqara-backend/internal/delivery/http/v1"
	"rizqara-backend/internal/domain"
	"rizqara-backend/internal/infrastructure/cache"
	"rizqara-backend/internal/infrastructure/courier"
	"rizqara-backend/internal/infrastructure/facebook"
	"rizqara-backend/internal/infrastructure/metrics"
	"rizqara-backend/internal/infrastructure/notify"
	"rizqara-backend/internal/infrastructure/realtime"
	"rizqara-backend/internal/repository/memory"
	"rizqara-backend/internal/repository/postgres"
	"rizqara-backend/internal/usecase"
	"rizqara-backend/pkg/logger"
	"rizqara-backend/pkg/storage"
	"rizqara-backend/pkg/utils"
)

const (
	serviceName    = "rizqara-backend"
	serviceVersion = "1.0.0"
	wsPath         = "/api/v1/admin/ws"
)

type repositories struct {
	orders   domain.OrderRepository
	vouchers domain.VoucherRepository
	users    domain.UserRepository
	products domain.ProductRepository
	carts    domain.CartRepository
	tx       domain.TransactionManager
	close    func()
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.StorageDriver == "memory" {
		store := memory.NewStore()
		logger.Warn().Msg("Using in-memory storage, data is lost on restart")
		return &repositories{
			orders:   memory.NewOrderRepo(store),
			vouchers: memory.NewVoucherRepo(store),
			users:    memory.NewUserRepo(store),
			products: memory.NewProductRepo(store),
			carts:    memory.NewCartRepo(store),
			tx:       memory.NewTxManager(store),
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPgxPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	logger.Info().Msg("Successfully connected to PostgreSQL")
	return &repositories{
		orders:   postgres.NewOrderRepository(pool),
		vouchers: postgres.NewVoucherRepository(pool),
		users:    postgres.NewUserRepository(pool),
		products: postgres.NewProductRepository(pool),
		carts:    postgres.NewCartRepository(pool),
		tx:       postgres.NewTransactionManager(pool),
		close:    pool.Close,
	}, nil
}

func main() {
	cfg := config.LoadConfig()
	utils.SetSecret(cfg.JWTSecret)

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()
	ctx := context.Background()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer repos.close()

	// Default expiration 30m, cleanup every 60m
	memCache := cache.NewMemoryCache(30*time.Minute, 60*time.Minute)
	m := metrics.New()

	// --- Outbound collaborators ---
	var shipper domain.Courier
	if cfg.CourierAPIKey != "" {
		client, err := courier.NewSteadfastClient(cfg.CourierBaseURL, cfg.CourierAPIKey, cfg.CourierSecretKey, cfg.CourierTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize courier client")
		}
		shipper = client
	} else {
		log.Warn().Msg("Courier not configured, shipment booking is disabled")
	}

	sender, err := notify.NewSender(cfg.EmailProvider, cfg.EmailFrom, cfg.EmailFromName, cfg.PostmarkToken, cfg.SendGridAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize email sender")
	}
	dispatcher := notify.NewDispatcher(sender, notify.DispatcherConfig{
		Workers:     cfg.NotifyWorkers,
		QueueSize:   cfg.NotifyQueueSize,
		SendTimeout: cfg.NotifySendTimeout,
		Observer:    m,
	})

	hub := realtime.NewHub([]string{cfg.AllowedOrigin, cfg.FrontendURL})
	m.RegisterGauge("realtime_clients", "Connected admin websocket clients.", func() float64 { return float64(hub.Clients()) })

	publisher := realtime.Fanout{hub}
	if capi := facebook.NewCAPIClient(cfg.FacebookPixelID, cfg.FacebookAccessToken, cfg.FacebookAPIVersion, cfg.FacebookTestCode); capi != nil {
		publisher = append(publisher, facebook.NewPurchaseSink(capi, repos.orders))
	}

	var files domain.FileStore
	if cfg.R2AccountID != "" {
		r2, err := storage.NewR2Storage(ctx, cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2BucketName, cfg.R2PublicURL, cfg.R2UploadTimeout)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
		}
		files = r2
	} else {
		log.Warn().Msg("R2 not configured, uploads are disabled")
	}

	// --- Use cases ---
	authUC := usecase.NewAuthUsecase(repos.users, memCache, dispatcher, usecase.AuthPolicy{
		AccessTokenExpiry:  cfg.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.RefreshTokenExpiry,
		OTPExpiry:          cfg.OTPExpiry,
		OTPResendAfter:     cfg.OTPResendAfter,
		OTPMaxAttempts:     cfg.OTPMaxAttempts,
	})
	orderUC := usecase.NewOrderUsecase(usecase.OrderDeps{
		Orders:    repos.orders,
		Vouchers:  repos.vouchers,
		Users:     repos.users,
		Products:  repos.products,
		Carts:     repos.carts,
		Tx:        repos.tx,
		Courier:   shipper,
		Notifier:  dispatcher,
		Publisher: publisher,
		Metrics:   m,
	}, usecase.OrderPolicy{
		Delivery:                cfg.Delivery,
		AutoBanFailedDeliveries: cfg.AutoBanFailedDeliveries,
		CourierTimeout:          cfg.CourierTimeout,
		CourierNote:             cfg.CourierNote,
	})
	voucherUC := usecase.NewVoucherUsecase(repos.vouchers, repos.carts, repos.products, memCache)
	cartUC := usecase.NewCartUsecase(repos.carts, repos.products, cfg.MaxCartQuantity)
	catalogUC := usecase.NewCatalogUsecase(repos.products, memCache)
	userUC := usecase.NewUserUsecase(repos.users)
	statsUC := usecase.NewStatsUsecase(repos.orders, memCache, cfg.StatsCacheTTL)

	handlers := v1.Handlers{
		Auth:       v1.NewAuthHandler(authUC, cfg.RefreshTokenExpiry, cfg.IsProduction()),
		User:       v1.NewUserHandler(userUC),
		Cart:       v1.NewCartHandler(cartUC, voucherUC),
		Order:      v1.NewOrderHandler(orderUC),
		AdminOrder: v1.NewAdminOrderHandler(orderUC),
		Voucher:    v1.NewVoucherHandler(voucherUC),
		Catalog:    v1.NewCatalogHandler(catalogUC),
		Config:     v1.NewConfigHandler(memCache, cfg.Delivery),
		Stats:      v1.NewAdminStatsHandler(statsUC),
		Webhook:    v1.NewWebhookHandler(orderUC, cfg.SMSWebhookToken, cfg.CourierWebhookToken),
		WS:         v1.NewWSHandler(hub),
	}
	if files != nil {
		handlers.Upload = v1.NewUploadHandler(files, cfg.MaxUploadSizeMB)
	}

	rateLimiter := middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst, time.Minute, 3*time.Minute)
	// 5 codes per minute per IP on the OTP endpoints.
	otpLimiter := middleware.NewRateLimiter(ctx, rate.Every(12*time.Second), 5, time.Minute, 10*time.Minute)

	mux := http.NewServeMux()
	v1.RegisterRoutes(mux, handlers, v1.RouteOptions{
		Metrics:        m,
		Idempotency:    memCache,
		IdempotencyTTL: cfg.IdempotencyTTL,
		OTPLimiter:     otpLimiter,
	})
	mux.Handle("GET /metrics", m.Handler())
	mux.Handle("GET /api/v1/metrics", m.Handler())

	// The websocket upgrade needs the raw connection, so it bypasses gzip.
	compressed := gziphandler.GzipHandler(mux)
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == wsPath || strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			mux.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})

	handler := middleware.NewCORSMiddleware(cfg.AllowedOrigin)(root)
	handler = rateLimiter.Middleware()(handler)
	handler = middleware.RequestLogger(handler)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	logger.ServiceStart(serviceName, serviceVersion, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Server shutting down...")

	rateLimiter.Shutdown()
	otpLimiter.Shutdown()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Notification queue not drained")
	}
	logger.ServiceStop(serviceName)
}
