package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Load .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/amanicare/therapy-booking/internal/aggregator" // Mobile-money aggregator client
	"github.com/amanicare/therapy-booking/internal/chat"       // Messaging provider client
	"github.com/amanicare/therapy-booking/internal/config"     // Internal config loader
	"github.com/amanicare/therapy-booking/internal/database"   // MySQL connection pool
	"github.com/amanicare/therapy-booking/internal/handler"    // HTTP handlers
	"github.com/amanicare/therapy-booking/internal/middleware" // Rate limiting and caching
	"github.com/amanicare/therapy-booking/internal/queue"      // RabbitMQ consumer
	"github.com/amanicare/therapy-booking/internal/repository" // Data access layer
	"github.com/amanicare/therapy-booking/internal/router"     // Route registration
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis backs the rate limiter and the public response cache.
	rdb := config.NewRedisClient()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	var limiter, cache echo.MiddlewareFunc
	if rdb != nil {
		if rlCfg.Enabled {
			limiter = middleware.NewTokenBucket(rlCfg, rdb)
		}
		if cacheCfg.Enabled {
			cache = middleware.NewRedisCache(cacheCfg, rdb)
		}
	}

	// Repositories.
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	questRepo := repository.NewQuestionnaireRepo(db)
	postRepo := repository.NewPostRepo(db)

	// Outbound clients.
	gateway := aggregator.NewClient(cfg.AggregatorBaseURL, cfg.AggregatorAPIKey)
	var chatClient *chat.Client
	if cfg.ChatAppID != "" && cfg.ChatAPIKey != "" {
		chatClient = chat.NewClient(cfg.ChatAppID, cfg.ChatRegion, cfg.ChatAPIKey)
	} else {
		log.Printf("chat disabled: COMETCHAT_APP_ID / COMETCHAT_API_KEY not set")
	}

	// Handlers.
	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo, chatClient)
	bookingH := handler.NewBookingHandler(cfg, bookingRepo, paymentRepo)
	paymentH := handler.NewPaymentHandler(cfg, paymentRepo, bookingRepo, gateway)
	gatewayH := handler.NewGatewayHandler(cfg, gateway)
	questH := handler.NewQuestionnaireHandler(questRepo)
	postH := handler.NewPostHandler(postRepo)
	adminH := handler.NewAdminHandler(userRepo, bookingRepo, paymentRepo)
	chatH := handler.NewChatHandler(chatClient)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterPublic(e, postH, cache)
	router.RegisterAuth(e, authH, cfg.JWTSecret, limiter)
	router.RegisterClient(e, bookingH, paymentH, questH, chatH, cfg.JWTSecret)
	router.RegisterGateway(e, gatewayH, cfg.JWTSecret, limiter)
	router.RegisterAdmin(e, adminH, bookingH, paymentH, questH, postH, cfg.JWTSecret)

	// Consume payment.completed events in the background; the consumer
	// reconnects on broker failures and never takes the API down.
	go func() {
		if err := queue.StartPaymentConsumer(); err != nil {
			log.Printf("payment consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
