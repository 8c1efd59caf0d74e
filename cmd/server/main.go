package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"dinein-backend/internal/auth"
	"dinein-backend/internal/config"
	"dinein-backend/internal/database"
	"dinein-backend/internal/events"
	"dinein-backend/internal/logger"
	"dinein-backend/internal/server"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		logrus.WithError(err).Fatal("Logger could not be created")
	}
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if err := database.Init(cfg, log); err != nil {
		log.WithError(err).Fatal("Database connection failed")
	}

	if err := auth.EnsureDefaultManager(database.DB, cfg, log); err != nil {
		log.WithError(err).Fatal("Default manager could not be created")
	}

	pub, err := events.NewPublisher(cfg.Events)
	if err != nil {
		log.WithError(err).Fatal("Event publisher could not be created")
	}
	defer pub.Close()

	app := server.New(cfg, database.DB, log, pub)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Shutdown failed")
		}
	}()

	log.WithField("port", cfg.HTTPPort).Info("Server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Error("Server stopped")
	}
}
