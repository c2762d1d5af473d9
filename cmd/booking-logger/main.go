package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-booking/internal/config"
	"github.com/iliyamo/seat-booking/internal/queue"
)

// booking-logger drains the seat event queue into an append-only log file.
func main() {
	_ = godotenv.Load()

	logger := log.New("booking-logger")
	logger.SetLevel(log.INFO)

	broker := config.LoadBrokerConfig()
	if !broker.Enabled() {
		logger.Fatal("RABBITMQ_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: broker.URL, Queue: broker.Queue, LogPath: broker.LogPath, Log: logger}
	logger.Infof("consuming %s into %s", broker.Queue, broker.LogPath)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal(err)
	}
}
