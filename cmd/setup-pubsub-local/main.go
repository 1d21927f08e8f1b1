package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"imaginify/internal/config"
	"imaginify/internal/logger"
	"imaginify/internal/pubsub"

	ps "cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

func main() {
	reset := flag.Bool("reset", false, "delete every topic and subscription first")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logger.New(cfg.LogLevel)
	logger.Info().Msg("Starting Pub/Sub setup for the local environment")

	emulator := os.Getenv("PUBSUB_EMULATOR_HOST")
	if emulator == "" {
		logger.Fatal().Msg("PUBSUB_EMULATOR_HOST must be set for local environment")
	}
	if cfg.GCPProjectID == "" || cfg.PubSubEventsTopic == "" {
		logger.Fatal().Msg("GCP_PROJECT_ID and PUBSUB_EVENTS_TOPIC must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := ps.NewClient(ctx, cfg.GCPProjectID, option.WithEndpoint(emulator), option.WithoutAuthentication())
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub client: %v", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close pubsub client")
		}
	}()

	if *reset {
		if err := pubsub.ResetEmulator(ctx, client, logger); err != nil {
			logger.Fatal().Msgf("Failed to reset emulator: %v", err)
		}
	}
	if err := pubsub.EnsureTopology(ctx, client, pubsub.DefaultTopology(cfg.PubSubEventsTopic), logger); err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub resources: %v", err)
	}
	logger.Info().Msg("Pub/Sub setup for local environment complete")
}
