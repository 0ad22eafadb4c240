package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ig248/exchange-calendars/internal/calendar"
	"github.com/ig248/exchange-calendars/internal/config"
	"github.com/ig248/exchange-calendars/internal/httpapi"
	"github.com/ig248/exchange-calendars/internal/registry"
	"github.com/ig248/exchange-calendars/internal/util"
)

func main() {
	cfgPath := "config/xcal.yaml"
	if p := os.Getenv("XCAL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	start, err := calendar.ParseDate(cfg.Calendars.Start)
	if err != nil {
		log.Fatalf("calendars.start: %v", err)
	}
	end, err := calendar.ParseDate(cfg.Calendars.End)
	if err != nil {
		log.Fatalf("calendars.end: %v", err)
	}
	side, err := calendar.ParseSide(cfg.Calendars.Side)
	if err != nil {
		log.Fatalf("calendars.side: %v", err)
	}

	reg := registry.New(logger)
	if dir := cfg.Calendars.DefinitionsDir; dir != "" {
		defs, err := registry.LoadDir(dir)
		if err != nil {
			log.Fatalf("loading calendar definitions: %v", err)
		}
		for _, def := range defs {
			if err := reg.Register(def); err != nil {
				log.Fatalf("registering %s: %v", def.Name, err)
			}
		}
		logger.Info("calendar definitions loaded", "dir", dir, "count", len(defs))
	}

	// Warm the cache so the first request doesn't pay the build cost.
	names := cfg.Calendars.Names
	if len(names) == 0 {
		names = reg.Names()
	}
	for _, name := range names {
		if _, err := reg.Get(name, start, end, side); err != nil {
			log.Fatalf("building calendar %s: %v", name, err)
		}
	}
	logger.Info("calendars built",
		"names", names, "start", start.String(), "end", end.String(), "side", string(side))

	srv := httpapi.NewServer(reg, start, end, side, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("calendar server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down calendar server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
