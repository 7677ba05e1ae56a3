package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rescuebot/api"
	"rescuebot/config"
	"rescuebot/pkg/bot"
	"rescuebot/pkg/logger"
	"rescuebot/service"
	"rescuebot/storage/postgres"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	pgStore, err := postgres.New(context.Background(), cfg, log)
	if err != nil {
		log.Error("Failed to connect to postgres", logger.Error(err))
		os.Exit(1)
	}
	defer pgStore.Close()

	svc := service.New(pgStore, log)

	rescueBot, err := bot.New(&cfg, pgStore, svc, log)
	if err != nil {
		log.Error("Failed to initialize bot", logger.Error(err))
		os.Exit(1)
	}

	go func() {
		if err := api.Run(&cfg, pgStore, log); err != nil {
			log.Error("HTTP API stopped", logger.Error(err))
		}
	}()

	go rescueBot.Start()

	log.Info("🚀 Rescue coordination backend is now running.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("Stopping bot and shutting down...")
}
