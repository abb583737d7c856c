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

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/TIPmigs/sikad-server/internal/config"
	v1 "github.com/TIPmigs/sikad-server/internal/handler/http/v1"
	mqtthandler "github.com/TIPmigs/sikad-server/internal/handler/mqtt"
	"github.com/TIPmigs/sikad-server/internal/metrics"
	"github.com/TIPmigs/sikad-server/internal/notify"
	"github.com/TIPmigs/sikad-server/internal/repository"
	"github.com/TIPmigs/sikad-server/internal/service"
	"github.com/TIPmigs/sikad-server/pkg/logger"
	mqttclient "github.com/TIPmigs/sikad-server/pkg/mqtt"
	"github.com/TIPmigs/sikad-server/pkg/postgres"
	redisclient "github.com/TIPmigs/sikad-server/pkg/redis"
)

func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Подключение к брокеру телеметрии
	mqttClient, err := mqttclient.NewClient(cfg.MQTTBroker, cfg.MQTTClientID)
	if err != nil {
		log.Fatalf("Failed to connect to MQTT broker: %v", err)
	}
	defer mqttClient.Disconnect(250)
	log.Info("Successfully connected to MQTT broker")

	metrics.RegisterDefault()

	// Инициализация репозиториев
	geofenceRepo := repository.NewGeofenceRepository(dbpool)
	alertRepo := repository.NewAlertRepository(dbpool)
	contactRepo := repository.NewContactRepository(dbpool)
	positionStore := repository.NewPositionStore(redisClient)

	// Инициализация ядра телеметрии
	fenceCache := service.NewFenceCache(geofenceRepo, cfg.FenceCacheTTL, log)
	crossings := service.NewCrossingTracker(log, cfg.DeviceIdleTTL, cfg.MaxTrackedDevices)
	crossings.StartJanitor(ctx, cfg.DeviceSweepInterval)
	events := service.NewEventTracker(service.EventCooldown)
	events.StartJanitor(ctx, cfg.DeviceSweepInterval)

	// Инициализация рассылки
	smsClient := notify.NewPhilSMSClient(cfg, log)
	dispatcher := notify.NewDispatcher(contactRepo, smsClient, log, cfg)

	telemetry := service.NewTelemetryService(fenceCache, crossings, events, alertRepo, positionStore, dispatcher, log)

	// Подписка на фид телеметрии
	subscriber := mqtthandler.NewSubscriber(mqttClient, telemetry, log)
	if err := subscriber.Start(); err != nil {
		log.Fatalf("Failed to subscribe to telemetry feed: %v", err)
	}

	// Инициализация хэндлеров
	handler := v1.NewHandler(telemetry, positionStore, log, cfg)

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Метрики Prometheus
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server gracefully stopped")
}
