package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethadapter "github.com/bunnyexe1/AUTHENTIX/internal/adapter/ethereum"
	mongoadapter "github.com/bunnyexe1/AUTHENTIX/internal/adapter/mongo"
	natsadapter "github.com/bunnyexe1/AUTHENTIX/internal/adapter/nats"
	redisadapter "github.com/bunnyexe1/AUTHENTIX/internal/adapter/redis"
	minioadapter "github.com/bunnyexe1/AUTHENTIX/internal/adapter/storage/minio"
	"github.com/bunnyexe1/AUTHENTIX/internal/app/config"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/logger"
	"github.com/bunnyexe1/AUTHENTIX/internal/platform/tracer"
	httpserver "github.com/bunnyexe1/AUTHENTIX/internal/port/http"
	"github.com/bunnyexe1/AUTHENTIX/internal/service"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "authentix-marketplace"

type App struct {
	cfg            *config.Config
	log            logger.Logger
	server         *httpserver.Server
	mongoClient    *mongo.Client
	redisClient    *redis.Client
	natsConn       *nats.Conn
	tracerProvider *sdktrace.TracerProvider
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	logCfg := logger.ZapLoggerConfig{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		TimeFormat: cfg.Logger.TimeFormat,
	}
	appLogger, err := logger.NewZapLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Info("Logger initialized")
	appLogger.Infof("Configuration loaded: Env=%s, HTTP Port: %s", cfg.Env, cfg.HTTPServer.Port)

	var tracerProvider *sdktrace.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProvider, err = tracer.Init(ctx, serviceName, cfg.Tracing.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		appLogger.Info("Tracer initialized")
	}

	appLogger.Info("Initializing MongoDB client...")
	mongoClient, err := mongoadapter.NewClient(ctx, cfg.MongoDB)
	if err != nil {
		appLogger.Errorf("Failed to initialize MongoDB client: %v", err)
		return nil, fmt.Errorf("failed to initialize MongoDB client: %w", err)
	}
	if err := mongoadapter.EnsureIndexes(ctx, mongoClient, cfg.MongoDB); err != nil {
		appLogger.Errorf("Failed to ensure MongoDB indexes: %v", err)
		return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}
	appLogger.Info("MongoDB client initialized successfully")

	appLogger.Info("Initializing Redis client...")
	redisClient, err := redisadapter.NewClient(ctx, cfg.Redis)
	if err != nil {
		appLogger.Errorf("Failed to initialize Redis client: %v", err)
		return nil, fmt.Errorf("failed to initialize Redis client: %w", err)
	}
	appLogger.Info("Redis client initialized successfully")

	appLogger.Info("Initializing NATS connection...")
	natsConn, err := natsadapter.NewConnection(cfg.NATS)
	if err != nil {
		appLogger.Errorf("Failed to connect to NATS: %v", err)
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	publisher, err := natsadapter.NewPublisher(natsConn)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}
	appLogger.Info("NATS publisher initialized successfully")

	appLogger.Info("Initializing Ethereum client...")
	ethClient, err := ethadapter.NewClient(ctx, cfg.Ethereum)
	if err != nil {
		appLogger.Errorf("Failed to initialize Ethereum client: %v", err)
		return nil, fmt.Errorf("failed to initialize Ethereum client: %w", err)
	}
	signers := ethadapter.NewKeystoreSigner(cfg.Ethereum)
	marketplace, err := ethadapter.NewMarketplace(ethClient, signers, cfg.Ethereum, appLogger)
	if err != nil {
		appLogger.Errorf("Failed to bind marketplace contract: %v", err)
		return nil, fmt.Errorf("failed to bind marketplace contract: %w", err)
	}
	appLogger.Infof("Marketplace contract bound at %s", cfg.Ethereum.ContractAddress)

	appLogger.Info("Initializing image store...")
	imageStore, err := minioadapter.NewImageStore(ctx, cfg.Storage, appLogger)
	if err != nil {
		appLogger.Errorf("Failed to initialize image store: %v", err)
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}
	appLogger.Info("Image store initialized successfully")

	catalogRepo := mongoadapter.NewCatalogRepository(mongoClient, cfg.MongoDB)
	catalogCache := redisadapter.NewCatalogCache(redisClient, cfg.Cache.ListingTTL)

	engine := service.NewEngine(marketplace, catalogRepo, catalogCache, publisher, appLogger)
	reconciler := service.NewReconciler(marketplace, catalogRepo, catalogCache, appLogger)
	appLogger.Info("Listing engine and reconciler initialized")

	handler := httpserver.NewHandler(engine, reconciler, imageStore, appLogger)
	srv := httpserver.NewServer(cfg.HTTPServer, handler, appLogger)
	appLogger.Info("HTTP server instance created")

	return &App{
		cfg:            cfg,
		log:            appLogger,
		server:         srv,
		mongoClient:    mongoClient,
		redisClient:    redisClient,
		natsConn:       natsConn,
		tracerProvider: tracerProvider,
	}, nil
}

func (a *App) Run() {
	a.log.Info("Starting application components...")

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
	a.log.Info("HTTP server started in a goroutine")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit
	a.log.Infof("Received shutdown signal: %v. Shutting down application...", receivedSignal)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPServer.TimeoutGraceful+5*time.Second)
	defer cancel()

	if err := a.server.Stop(shutdownCtx); err != nil {
		a.log.Errorf("Error during HTTP server graceful shutdown: %v", err)
	} else {
		a.log.Info("HTTP server stopped successfully")
	}

	a.log.Info("Closing external connections...")

	if a.natsConn != nil {
		a.natsConn.Close()
		a.log.Info("NATS connection closed")
	}

	if a.mongoClient != nil {
		if err := a.mongoClient.Disconnect(shutdownCtx); err != nil {
			a.log.Errorf("Error disconnecting from MongoDB: %v", err)
		} else {
			a.log.Info("MongoDB connection closed successfully")
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Errorf("Error closing Redis client: %v", err)
		} else {
			a.log.Info("Redis client closed successfully")
		}
	}

	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			a.log.Errorf("Error shutting down tracer provider: %v", err)
		}
	}

	a.log.Info("Application shut down successfully")
}
