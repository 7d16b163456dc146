package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"logos-backend/internal/common/config"
	"logos-backend/internal/common/logger"
	"logos-backend/internal/ops"
	"logos-backend/internal/persist"
	"logos-backend/internal/scheduler"
	"logos-backend/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("logos-backend", cfg.Debug)

	sink, err := openSink(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open snapshot sink")
	}

	snap, found, err := sink.Load(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load snapshot")
	}
	if found {
		logger.Info().Int("users", len(snap)).Msg("Snapshot found, importing store")
	} else {
		logger.Warn().Msg("No snapshot found, starting with an empty store")
	}

	writer := persist.NewWriter(sink)
	st := store.FromSnapshot(snap, writer.Queue().Offer)
	writer.Start()

	// The chat-platform client is wired in by the command layer; until then
	// reminders land in the log.
	sched := scheduler.New(st, logNotifier{})
	sched.Seed(st.Events())
	sched.Start()

	srv := &http.Server{
		Addr:    cfg.Ops.Addr,
		Handler: ops.NewRouter(st, sched, cfg.Debug),
	}
	go func() {
		logger.Info().Str("addr", cfg.Ops.Addr).Msg("Ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Ops server failed")
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Ops server shutdown")
	}
	sched.Stop()
	writer.Stop()
	logger.Info().Msg("Server stopped")
}

func openSink(ctx context.Context, cfg *config.Config) (persist.Sink, error) {
	switch cfg.Persist.Backend {
	case "file":
		return persist.NewFileSink(cfg.Persist.DataPath), nil
	case "redis":
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		return persist.OpenRedisSink(ctx, addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key)
	default:
		return nil, fmt.Errorf("unknown persist backend %q", cfg.Persist.Backend)
	}
}

// logNotifier stands in for the platform delivery collaborator.
type logNotifier struct{}

func (logNotifier) Notify(_ context.Context, user store.UserID, text string) error {
	logger.Info().Int64("user", int64(user)).Str("text", text).Msg("Reminder due")
	return nil
}
