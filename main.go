package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelaygo/internal/config"
	"chatrelaygo/internal/database/db_client"
	"chatrelaygo/internal/http/http_server"
	"chatrelaygo/internal/redis/redis_client"
	"chatrelaygo/internal/services/chat"
	"chatrelaygo/internal/services/identity"
	"chatrelaygo/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Services
	identityService := identity.NewIdentityService(pgDb, cfg.JwtSecret,
		time.Duration(cfg.TokenTTLHours)*time.Hour, cfg.JwtIssuer)
	chatService := chat.NewChatService(pgDb, redisClient)

	// 6. WS server (builds the relay engine on top of the transport)
	wsSrv := ws.NewWsServer(identityService, chatService, redisClient)

	// 7. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, identityService, chatService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
