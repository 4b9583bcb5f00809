package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"label-web/internal/config"
	"label-web/internal/fonts"
	"label-web/internal/logger"
	"label-web/internal/notify"
	"label-web/internal/printer"
	"label-web/internal/server"
)

func main() {
	fs := pflag.NewFlagSet("label-web", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: label-web [flags] [printer]\n\n")
		fmt.Fprintf(os.Stderr, "printer is a CUPS queue, tcp://host:port or a serial device path.\n\n")
		fs.PrintDefaults()
	}
	config.Flags(fs)
	_ = fs.Parse(os.Args[1:])

	configFile, _ := fs.GetString("config")
	cfg, err := config.Load(configFile, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: cfg.Server.LogLevel, Format: cfg.Server.LogFormat})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("label-web failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if !cfg.Server.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	log.Info("Starting label-web",
		zap.String("config", cfg.File),
		zap.String("backend", cfg.Printer.Backend))

	reg, err := fonts.NewRegistry(log)
	if err != nil {
		return err
	}
	n := reg.LoadSystem()
	if cfg.Server.FontFolder != "" {
		added, err := reg.LoadDir(cfg.Server.FontFolder)
		if err != nil {
			return fmt.Errorf("font folder: %w", err)
		}
		n += added
	}
	log.Info("Fonts loaded", zap.Int("files", n), zap.Int("fonts", reg.Len()))

	backend, err := printer.New(cfg.Printer, log)
	if err != nil {
		return err
	}

	mqtt := notify.New(cfg.MQTT, log)
	mqtt.Connect()
	defer mqtt.Disconnect()

	srv, err := server.New(cfg, backend, reg, mqtt, log.Named("http"))
	if err != nil {
		return err
	}
	log.Info("Default font", zap.Stringer("font", srv.DefaultFont()))

	httpSrv := srv.HTTPServer(cfg.Server.Addr())
	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}
