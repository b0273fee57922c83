package main

import (
	"context"
	"log"

	"travel-booking/cmd"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/wire"
	"travel-booking/migrations"
	"travel-booking/pkg/database"
	"travel-booking/pkg/gateway"
	"travel-booking/pkg/messaging"
	"travel-booking/pkg/tracing"
	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("capacity_backend", config.Capacity.Backend),
		zap.String("tour_strategy", config.Capacity.TourStrategy),
	)

	shutdownTracer, err := tracing.InitTracerProvider(config.Tracing.ServiceName, config.Tracing.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to init tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if config.Database.AutoMigrate {
		if err := migrations.Apply(ctx, db); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	if config.Capacity.Backend == utils.CapacityBackendRedis {
		rdb, err := database.InitRedis(config.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rdb.Close()

		repos.Capacity = repository.NewRedisCapacityStore(rdb, logger)
		logger.Info("Capacity pools served from Redis", zap.String("addr", config.Redis.Addr))
	}

	var events messaging.Publisher = messaging.NopPublisher{}
	if len(config.Kafka.Brokers) > 0 {
		events = messaging.NewKafkaPublisher(messaging.NewKafkaWriter(config.Kafka.Brokers, config.Kafka.Topic))
		logger.Info("Publishing events to Kafka",
			zap.Strings("brokers", config.Kafka.Brokers),
			zap.String("topic", config.Kafka.Topic),
		)
	}
	defer events.Close()

	gw := gateway.NewSandbox(config.Gateway, logger)

	// Wire all dependencies
	app := wire.Wiring(repos, gw, events, config, logger)

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server stopped")
}
