package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/myuser/kvgate/internal/config"
	"github.com/myuser/kvgate/internal/db"
	"github.com/myuser/kvgate/internal/log"
	"github.com/myuser/kvgate/internal/server"
	"github.com/myuser/kvgate/internal/status"
	"github.com/myuser/kvgate/internal/storage"
	_ "github.com/myuser/kvgate/internal/storage/all"
)

func main() {
	addr := flag.String("addr", ":9001", "HTTP listen address")
	engine := flag.String("engine", "btree", "Storage engine: "+strings.Join(storage.Engines(), ", "))
	configPath := flag.String("config", "", "YAML or JSON engine config file")
	path := flag.String("path", "", "Engine path, overrides the config file entry")
	logLevel := flag.String("log-level", "info", "Log level")
	logType := flag.String("log-type", "console", "Log output: console or json")
	flag.Parse()

	level, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		log.Root.Fatal().Err(err).Msg("bad -log-level")
	}
	lt, err := log.ParseLoggerType(*logType)
	if err != nil {
		log.Root.Fatal().Err(err).Msg("bad -log-type")
	}
	log.Init(log.Options{LogLevel: level, Type: lt})

	// 1. Config
	cfg := config.New()
	if *configPath != "" {
		if cfg, err = config.FromFile(*configPath); err != nil {
			log.Root.Fatal().Err(err).Str("file", *configPath).Msg("load config")
		}
	}
	if *path != "" {
		cfg.PutString("path", *path)
	}

	// 2. Storage Engine
	d, st := db.Open(*engine, cfg)
	if st != status.OK {
		log.Root.Fatal().Str("engine", *engine).Stringer("status", st).Msg("open engine")
	}

	// 3. HTTP
	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.New(d),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Server.Info().Str("addr", *addr).Str("engine", *engine).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Server.Fatal().Err(err).Msg("listen")
		}
	}()

	// Cleanup
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Server.Warn().Err(err).Msg("shutdown")
	}
	if st := d.Close(); st != status.OK {
		log.Root.Error().Stringer("status", st).Msg("close engine")
	}
}
