package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarinCervinschi/HVAC-System/internal/config"
	"github.com/MarinCervinschi/HVAC-System/internal/httpapi"
	"github.com/MarinCervinschi/HVAC-System/internal/logging"
	"github.com/MarinCervinschi/HVAC-System/internal/orchestrator"
)

func main() {
	cfg := config.FromEnv()
	log, logFile := logging.Init(cfg.LogDir, "hvac-agent.log")
	if logFile != nil {
		defer logFile.Close()
	}

	log.Info("starting HVAC edge agent", slog.Any("cfg", cfg.Redacted()))

	orch, err := orchestrator.New(cfg, log)
	if err != nil {
		log.Error("failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		log.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	api := httpapi.New(orch, log)
	httpSrv := &http.Server{
		Addr:    cfg.AdminBind,
		Handler: api.Handler(),
	}

	go func() {
		log.Info("admin http server listening", "addr", cfg.AdminBind)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("admin http server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutdown requested")

	cancel()
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = httpSrv.Shutdown(shutdownCtx)
	if err := orch.Stop(); err != nil {
		log.Warn("orchestrator stop reported an error", "error", err)
	}
	log.Info("bye")
}
