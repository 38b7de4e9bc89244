package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/respoke-chatbot/internal/api"
	"github.com/eldtechnologies/respoke-chatbot/internal/chatbot"
	"github.com/eldtechnologies/respoke-chatbot/internal/config"
	"github.com/eldtechnologies/respoke-chatbot/internal/respoke"
	"github.com/eldtechnologies/respoke-chatbot/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		logger.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize Redis store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Respoke REST client and outbound queue
	var client *respoke.Client
	var publisher respoke.GroupPublisher
	if cfg.HasRespoke() {
		client = respoke.NewClient(cfg.RespokeBaseURL, cfg.RespokeAppID, cfg.RespokeAppSecret)
		client.TokenTTL = cfg.TokenTTL
		publisher = client
	} else {
		logger.Warn().Msg("RESPOKE_APP_ID/RESPOKE_APP_SECRET not set, replies will be dropped")
	}

	outbox := respoke.NewOutbox(cfg.OutboxSize, publisher, logger)
	go outbox.Run(ctx)

	bot := chatbot.New(store.NewHistoryStore(store.DefaultHistoryCapacity), outbox, logger, chatbot.Options{
		BotEndpoint: cfg.BotEndpoint,
		BotGroups:   cfg.BotGroups,
		PeopleGroup: cfg.PeopleGroup,
	})

	deps := api.Deps{Bot: bot, Socket: outbox}
	if redisStore != nil {
		deps.Redis = redisStore
	}

	if client != nil {
		deps.Tokens = client

		// Application socket for endpoint messages, then the startup sequence
		go respoke.Maintain(ctx, cfg.RespokeSocketURL, cfg.RespokeAppSecret, outbox, logger)
		go func() {
			bootCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := bot.Bootstrap(bootCtx, client); err != nil {
				logger.Error().Err(err).Msg("bot bootstrap failed")
			}
		}()
	}

	// Create router
	router := api.NewRouter(logger, cfg, deps)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Str("bot_endpoint", cfg.BotEndpoint).
			Msg("starting chatbot server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	stop()

	logger.Info().Int("pending_replies", outbox.Pending()).Msg("server stopped")
}
