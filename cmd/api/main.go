package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/swapbnb/api/docs" // Swagger docs (generated)
	"github.com/swapbnb/api/internal/auth"
	"github.com/swapbnb/api/internal/config"
	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/database"
	"github.com/swapbnb/api/internal/email"
	"github.com/swapbnb/api/internal/events"
	"github.com/swapbnb/api/internal/exchange"
	"github.com/swapbnb/api/internal/favorite"
	"github.com/swapbnb/api/internal/home"
	httpServer "github.com/swapbnb/api/internal/http"
	"github.com/swapbnb/api/internal/logging"
	"github.com/swapbnb/api/internal/message"
	"github.com/swapbnb/api/internal/notify"
	"github.com/swapbnb/api/internal/payment"
	"github.com/swapbnb/api/internal/ratelimit"
	"github.com/swapbnb/api/internal/storage"
	"github.com/swapbnb/api/internal/user"
	"github.com/swapbnb/api/internal/verification"
	"github.com/swapbnb/api/internal/video"
	"github.com/swapbnb/api/internal/webhook"
)

// @title           SwapBnB API
// @version         1.0
// @description     Home exchange marketplace: listings, swap requests, messaging, video calls, identity checks and credits.

// @contact.name   API Support
// @contact.email  support@swapbnb.local

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_type", cfg.Auth.TokenType,
	)

	ctx := context.Background()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	homeRepo := home.NewRepository(db)
	favoriteRepo := favorite.NewRepository(db)
	exchangeRepo := exchange.NewRepository(db)
	messageRepo := message.NewRepository(db)
	creditsRepo := credits.NewRepository(db)
	verificationRepo := verification.NewRepository(db)
	paymentLogRepo := webhook.NewRepository(db)
	refreshRepo := auth.NewRedisRepository(redisClient)
	passwordResetRepo := auth.NewPasswordResetRepository(redisClient)

	// External integrations
	emailService := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FromAddress,
		cfg.Email.FrontendURL,
	)
	uploader, err := storage.NewCloudinaryUploader(cfg.Cloudinary.URL, cfg.Cloudinary.Folder)
	if err != nil {
		return fmt.Errorf("failed to initialize uploads: %w", err)
	}
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey)
	videoProvider := video.NewDailyProvider(cfg.Video, logger)

	var (
		publisher      events.Publisher
		localPublisher *events.LocalPublisher
	)
	if cfg.Kafka.Enabled() {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	} else {
		localPublisher = events.NewLocalPublisher(notify.NewNotifier(userRepo, emailService, logger), logger)
		publisher = localPublisher
		logger.Info("kafka not configured, notifying in process")
	}

	// Services
	tokenService, err := auth.NewTokenService(cfg.Auth.TokenType, cfg.Auth.JWTSecret, cfg.Auth.PasetoKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	authService := auth.NewService(
		userRepo,
		refreshRepo,
		passwordResetRepo,
		tokenService,
		emailService,
		logger,
		cfg.Auth.AccessTokenDuration,
		cfg.Auth.RefreshTokenDuration,
	)
	oauthService := auth.NewOAuthService(redisClient, auth.ProvidersFromConfig(cfg.Auth))

	creditsService := credits.NewService(creditsRepo, gateway, cfg.Credits, cfg.Stripe)
	exchangeService := exchange.NewService(exchangeRepo, videoProvider, gateway, publisher, exchange.Options{
		PerSwap:        cfg.Credits.PerSwap,
		UnitPriceCents: cfg.Credits.UnitPriceCents,
		Currency:       cfg.Credits.Currency,
		FrontendURL:    cfg.Email.FrontendURL,
	})
	verificationService := verification.NewService(userRepo, exchangeService, verificationRepo, gateway, publisher, cfg.Stripe.IdentityReturnURL)
	webhookService := webhook.NewService(paymentLogRepo, creditsService, exchangeService, verificationService)

	handlers := httpServer.Handlers{
		Auth: auth.NewHandler(authService, oauthService, ratelimit.NewLimiter(redisClient), auth.HandlerOptions{
			IsProduction:    !cfg.Server.IsDevelopment(),
			FrontendURL:     cfg.Email.FrontendURL,
			AccessDuration:  cfg.Auth.AccessTokenDuration,
			RefreshDuration: cfg.Auth.RefreshTokenDuration,
		}),
		Users:        user.NewHandler(user.NewService(userRepo, uploader)),
		Homes:        home.NewHandler(home.NewService(homeRepo, uploader)),
		Favorites:    favorite.NewHandler(favoriteRepo),
		Exchanges:    exchange.NewHandler(exchangeService),
		Messages:     message.NewHandler(message.NewService(messageRepo, publisher)),
		Credits:      credits.NewHandler(creditsService),
		Verification: verification.NewHandler(verificationService),
		Webhooks:     webhook.NewHandler(webhookService, cfg.Stripe.PaymentsWebhookSecret, cfg.Stripe.IdentityWebhookSecret),
	}

	router := httpServer.NewRouter(cfg, handlers, auth.NewMiddleware(tokenService), logger)
	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		if localPublisher != nil {
			if err := localPublisher.Close(ctx); err != nil {
				logger.Warn("pending notifications were dropped", "error", err)
			}
		}
	}

	return nil
}

func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}
