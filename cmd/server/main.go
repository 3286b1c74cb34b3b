// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/dmaloney-io/parlor/internal/config"
	"github.com/dmaloney-io/parlor/internal/genai"
	"github.com/dmaloney-io/parlor/internal/handlers"
	"github.com/dmaloney-io/parlor/internal/lobby"
	"github.com/dmaloney-io/parlor/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	gen := genai.New(cfg.AnthropicAPIKey, cfg.GenModel, logger)
	store := lobby.NewStore(gen, lobby.Timings{
		TriviaInterval: cfg.TriviaInterval,
		CleanupGrace:   cfg.CleanupGrace,
		BotReplyDelay:  cfg.BotReplyDelay,
		GenTimeout:     cfg.GenTimeout,
	}, logger)
	srv := handlers.NewServer(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handlers.HealthHandler)
	mux.Handle("/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.WSHandler(srv),
	)))

	addr := ":" + cfg.Port
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
