package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bolekz/riffa-games/config"
	"github.com/bolekz/riffa-games/db"
	"github.com/bolekz/riffa-games/handlers"
	"github.com/bolekz/riffa-games/live"
	"github.com/bolekz/riffa-games/payments"
	"github.com/bolekz/riffa-games/repositories"
	api "github.com/bolekz/riffa-games/routes"
	"github.com/bolekz/riffa-games/services"
	"github.com/bolekz/riffa-games/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const (
	finalizerInterval = time.Minute // How often the finalization sweep runs
	tokenTTL          = 24 * time.Hour
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 credentials not configured, media uploads disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	// Инициализация репозиториев
	txRunner := repositories.NewTxRunner(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	gameRepo := repositories.NewPostgresGameRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	attemptRepo := repositories.NewPostgresAttemptRepository(dbConn)
	prizeRepo := repositories.NewPostgresPrizeRepository(dbConn)
	claimRepo := repositories.NewPostgresClaimRepository(dbConn)
	transactionRepo := repositories.NewPostgresTransactionRepository(dbConn)
	eventRepo := repositories.NewPostgresEventRepository(dbConn)
	logger.Info("repositories initialized")

	// Платёжный шлюз
	gateway := payments.NewMercadoPagoClient(cfg.MPAccessToken)

	// Инициализация сервисов
	eventRecorder := services.NewAsyncEventRecorder(eventRepo, logger)
	defer eventRecorder.Close()

	authService := services.NewAuthService(userRepo, eventRecorder, cfg.JWTSecretKey, tokenTTL)
	userService := services.NewUserService(userRepo, attemptRepo, claimRepo, transactionRepo, tournamentRepo, txRunner, eventRecorder, logger)
	gameService := services.NewGameService(gameRepo, uploader, logger)
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		attemptRepo,
		prizeRepo,
		claimRepo,
		userRepo,
		gameRepo,
		transactionRepo,
		txRunner,
		eventRecorder,
		wsHub,
		uploader,
		logger,
	)
	claimService := services.NewClaimService(claimRepo, prizeRepo, userRepo, txRunner, eventRecorder, logger)
	paymentService := services.NewPaymentService(userRepo, transactionRepo, gateway, cfg.FrontendURL, cfg.BackendURL, logger)
	webhookService := services.NewWebhookService(userRepo, transactionRepo, txRunner, gateway, eventRecorder, logger)
	logger.Info("services initialized")

	// Планировщик финализации: каждую минуту закрывает турниры,
	// у которых истекло окно соревнования.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(finalizerInterval)
		defer ticker.Stop()
		logger.Info("tournament finalizer started", slog.Duration("interval", finalizerInterval))

		for {
			select {
			case <-ticker.C:
				done, failed := tournamentService.FinalizeDueTournaments(sweepCtx)
				if done > 0 || failed > 0 {
					logger.Info("finalization sweep completed",
						slog.Int("finalized", done), slog.Int("failed", failed))
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	gameHandler := handlers.NewGameHandler(gameService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	claimHandler := handlers.NewClaimHandler(claimService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Config{
		JWTSecret:     cfg.JWTSecretKey,
		WebhookSecret: cfg.MPWebhookSecret,
		FrontendURL:   cfg.FrontendURL,
		Logger:        logger,
		AuthHandler:   authHandler,
		UserHandler:   userHandler,
		Games:         gameHandler,
		Tournaments:   tournamentHandler,
		Claims:        claimHandler,
		Payments:      paymentHandler,
		Webhooks:      webhookHandler,
		WebSockets:    webSocketHandler,
	})
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
