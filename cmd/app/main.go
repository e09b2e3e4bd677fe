package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"TrendPulse/internal/di"
	"TrendPulse/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Optional .env for local runs; real deployments set env directly
	_ = godotenv.Load()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s archive=%s timeframes=%v", cfg.Environment, cfg.Archive.Backend, cfg.Pipeline.Timeframes)

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
