package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/app"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/config"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
)

func main() {
	envFile := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	// Загрузка конфигурации
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		logger.New(logger.ERROR).Fatal("Failed to load configuration: %v", err)
	}

	log := logger.New(logger.ParseLevel(cfg.Log.Level))
	defer func() { _ = log.Sync() }()

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Errorw("Failed to release resources", "error", err)
		}
	}()

	if err := application.Run(ctx); err != nil {
		log.Errorw("Server stopped with error", "error", err)
		return
	}

	log.Info("Server stopped gracefully")
}
