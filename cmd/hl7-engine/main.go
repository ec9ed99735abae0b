package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/hl7engine/internal/config"
	"github.com/ehr/hl7engine/internal/platform/hl7v2"
	"github.com/ehr/hl7engine/internal/platform/middleware"
	"github.com/ehr/hl7engine/internal/platform/mllp"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hl7-engine",
		Short: "HL7 v2.x message engine",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HL7 engine HTTP and MLLP listeners",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	apiV1 := e.Group("/api/v1")
	hl7v2.NewHandler().RegisterRoutes(apiV1)

	// HL7v2 MLLP TCP listener (optional, started when MLLP_ADDR is set)
	var mllpServer *mllp.Server
	if cfg.MLLPAddr != "" {
		mllpServer = mllp.NewServer(cfg.MLLPAddr, mllp.AckHandler(cfg.MLLPStrictAck), logger)
		if err := mllpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start MLLP server")
		}
		logger.Info().Str("addr", mllpServer.Addr()).Msg("MLLP server started")
	}

	// Start HTTP server
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("HTTP server started")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	if mllpServer != nil {
		if err := mllpServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("MLLP shutdown error")
		}
	}

	return nil
}
