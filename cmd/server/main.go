package main

import (
	"flag"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hamza-v/dash-chat/internal/auth"
	"github.com/hamza-v/dash-chat/internal/config"
	"github.com/hamza-v/dash-chat/internal/handlers"
	"github.com/hamza-v/dash-chat/internal/history"
	"github.com/hamza-v/dash-chat/internal/hub"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to config file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	db, err := history.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := history.MigrateDB(db, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	store := history.NewStore(db, logger)
	tokens := auth.NewManager(cfg.Server.JWTSecret, time.Duration(cfg.Server.TokenTTLHours)*time.Hour)

	chatHub := hub.New(store, logger)
	go chatHub.Run()

	app := fiber.New()
	handlers.NewChatHandlers(chatHub, store, tokens, logger).Register(app)

	logger.Info("chat server listening", zap.String("addr", cfg.Server.Addr))
	if err := app.Listen(cfg.Server.Addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
