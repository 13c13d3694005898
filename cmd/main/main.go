package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fx-agent/src/helpers"
	"fx-agent/src/logger"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	refresh := flag.Duration("refresh", time.Minute, "decision refresh interval (0 disables)")
	flag.Parse()

	// 2. Load config (.env, YAML, environment)
	conf, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.MConfig, conf.Name)
	helpers.ApplyMemoryLimit(appLogger)

	// 4. Setup Components
	decisionCache := setupCache(conf.MConfig, appLogger)
	defer decisionCache.Close()

	service := setupDecisionService(conf.MConfig)

	// 5. Start Servers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, control := startServers(ctx, conf, service, decisionCache, appLogger)
	if *refresh > 0 {
		go srv.RunRefresher(ctx, *refresh)
	}

	// 6. Wait for a signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	appLogger.Info("Received %s, shutting down...", sig)

	cancel()
	control.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed: %v", err)
	}
	appLogger.Info("Shutdown complete.")
}
