package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"selfcare/internal/bot"
	"selfcare/internal/config"
	"selfcare/internal/metrics"
	"selfcare/internal/repository"
	"selfcare/internal/service"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("load timezone")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db")
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal().Err(err).Msg("db handle")
	}
	defer sqlDB.Close()

	store := repository.NewStore(db)
	services := bot.Services{
		Categories:  service.NewCategoryService(store),
		Strategies:  service.NewStrategyService(store),
		Viewers:     service.NewViewerService(store),
		Medications: service.NewMedicationService(store.Medications),
		Allies:      service.NewAllyService(store.Users),
		Reminders:   service.NewReminderService(store.Medications, cfg.RefillLeadDays),
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to telegram")
	}
	logger.Info().Str("username", api.Self.UserName).Msg("authorized on telegram")

	telegramBot := bot.New(api, store.Users, services, loc, &logger)

	scheduler := service.NewSchedulerService(loc, &logger)
	entryID, err := scheduler.ScheduleDaily(cfg.ReminderTime, 2*time.Minute, telegramBot.SendMedicationReminders)
	if err != nil {
		logger.Fatal().Err(err).Msg("schedule medication reminders")
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info().Time("next_run", scheduler.Next(entryID)).Msg("medication reminders scheduled")

	if cfg.MetricsAddr != "" {
		metrics.Register()
		go startMetricsServer(ctx, cfg.MetricsAddr, sqlDB, &logger)
	}

	logger.Info().Str("reminder_time", cfg.ReminderTime).Msg("selfcare bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func startMetricsServer(ctx context.Context, addr string, database *sql.DB, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
