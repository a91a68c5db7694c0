// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"flagpost-service/internal/config"
	"flagpost-service/internal/db"
	authHandler "flagpost-service/internal/handlers/auth"
	billingHandler "flagpost-service/internal/handlers/billing"
	catalogHandler "flagpost-service/internal/handlers/catalog"
	customerHandler "flagpost-service/internal/handlers/customer"
	holidayHandler "flagpost-service/internal/handlers/holiday"
	inventoryHandler "flagpost-service/internal/handlers/inventory"
	notifyH "flagpost-service/internal/handlers/notification"
	placementHandler "flagpost-service/internal/handlers/placement"
	subscriptionHandler "flagpost-service/internal/handlers/subscription"
	wsHandler "flagpost-service/internal/handlers/websocket"
	"flagpost-service/internal/middleware"
	"flagpost-service/internal/pkg/jwt"
	"flagpost-service/internal/repository/postgres"
	authUsecase "flagpost-service/internal/service/auth"
	billingUsecase "flagpost-service/internal/service/billing"
	"flagpost-service/internal/service/billing/stripe"
	catalogUsecase "flagpost-service/internal/service/catalog"
	customerUsecase "flagpost-service/internal/service/customer"
	holidayUsecase "flagpost-service/internal/service/holiday"
	inventoryUsecase "flagpost-service/internal/service/inventory"
	notifyUsecase "flagpost-service/internal/service/notification"
	placementUsecase "flagpost-service/internal/service/placement"
	"flagpost-service/internal/service/schedule"
	"flagpost-service/internal/service/servicearea"
	subscriptionUsecase "flagpost-service/internal/service/subscription"
	"flagpost-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.Default()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.RunMigrations(s.cfg.DatabaseURL, s.cfg.MigrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("[REDIS] connected")

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- JWT -----
	if s.cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	tokenGenerator := jwt.NewGenerator(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.JWTTTL)
	tokenVerifier := jwt.NewVerifier(s.cfg.JWTSecret, s.cfg.JWTIssuer)

	// ----- Email -----
	emailSender := notifyUsecase.NewSMTPSender(
		s.cfg.SMTPHost,
		s.cfg.SMTPPort,
		s.cfg.SMTPUser,
		s.cfg.SMTPPass,
		s.cfg.SMTPFromName,
		s.cfg.SMTPSecure,
	)

	// ----- Repositories -----
	holidayRepo := postgres.NewHolidayRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool)
	placementRepo := postgres.NewPlacementRepository(pool)
	routeRepo := postgres.NewRouteRepository(pool)
	inventoryRepo := postgres.NewInventoryRepository(pool)
	notifyRepo := postgres.NewNotificationRepository(pool)
	staffRepo := postgres.NewStaffRepository(pool)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// ----- Notification Dispatcher -----
	dispatcher := notifyUsecase.NewDispatcher(notifyRepo, emailSender, customerRepo, hub, logger)
	dispatcher.Start(ctx)

	// ----- Services -----
	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.cfg.Timezone, err)
	}
	calculator := schedule.NewCalculator(loc)
	generator := placementUsecase.NewGenerator(placementRepo, calculator, logger)

	areaChecker := servicearea.NewChecker(
		s.cfg.ServiceAreaZips,
		s.cfg.ServiceAreaLat,
		s.cfg.ServiceAreaLng,
		s.cfg.ServiceAreaRadiusKm,
		logger,
	)

	billingProvider := stripe.New(
		s.cfg.StripeAPIKey,
		s.cfg.StripeWebhookSecret,
		s.cfg.CheckoutSuccessURL,
		s.cfg.CheckoutCancelURL,
		logger,
	)

	lifecycle := subscriptionUsecase.NewLifecycle(
		subscriptionRepo,
		holidayRepo,
		productRepo,
		customerRepo,
		generator,
		billingProvider,
		areaChecker,
		dispatcher,
		logger,
	)

	lifecycle.SetStockAdjuster(inventoryRepo)

	deduper := billingUsecase.NewRedisDeduper(redisClient)
	processor := billingUsecase.NewProcessor(lifecycle, subscriptionRepo, deduper, dispatcher, logger)

	holidayService := holidayUsecase.NewService(holidayRepo, calculator, logger)
	catalogService := catalogUsecase.NewService(productRepo, logger)
	customerService := customerUsecase.NewService(customerRepo, areaChecker, logger)
	placementOps := placementUsecase.NewOps(placementRepo, routeRepo, logger)
	ledger := inventoryUsecase.NewLedger(inventoryRepo, logger)
	authService := authUsecase.NewService(staffRepo, tokenGenerator, logger)

	// ----- Expiry Sweep -----
	go s.runExpirySweep(ctx, lifecycle)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService)
	holidayHandlerInst := holidayHandler.NewHolidayHandler(holidayService)
	catalogHandlerInst := catalogHandler.NewCatalogHandler(catalogService)
	customerHandlerInst := customerHandler.NewCustomerHandler(customerService)
	subscriptionHandlerInst := subscriptionHandler.NewSubscriptionHandler(lifecycle)
	placementHandlerInst := placementHandler.NewPlacementHandler(placementOps)
	inventoryHandlerInst := inventoryHandler.NewInventoryHandler(ledger)
	webhookHandlerInst := billingHandler.NewWebhookHandler(billingProvider, processor, logger)
	notifHandlerInst := notifyH.NewNotificationHandler(notifyRepo)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, tokenVerifier, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(tokenVerifier)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:         authHandlerInst,
		HolidayHandler:      holidayHandlerInst,
		CatalogHandler:      catalogHandlerInst,
		CustomerHandler:     customerHandlerInst,
		SubscriptionHandler: subscriptionHandlerInst,
		PlacementHandler:    placementHandlerInst,
		InventoryHandler:    inventoryHandlerInst,
		WebhookHandler:      webhookHandlerInst,
		NotifHandler:        notifHandlerInst,
		WSHandler:           wsHandlerInst,
		AuthMiddleware:      authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

// runExpirySweep periodically rolls active subscriptions past their end date
// into expired or canceled and skips their future placements.
func (s *Server) runExpirySweep(ctx context.Context, lifecycle *subscriptionUsecase.Lifecycle) {
	ticker := time.NewTicker(s.cfg.ExpirySweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := lifecycle.ExpireDue(ctx); err != nil {
				s.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}
