package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dgnsrekt/spx-greeks-api/internal/config"
	"github.com/dgnsrekt/spx-greeks-api/internal/exposure"
	"github.com/dgnsrekt/spx-greeks-api/internal/marketdata"
	"github.com/dgnsrekt/spx-greeks-api/internal/pipeline"
	"github.com/dgnsrekt/spx-greeks-api/internal/regime"
	"github.com/dgnsrekt/spx-greeks-api/internal/server"
	"github.com/dgnsrekt/spx-greeks-api/internal/tradier"
	"github.com/dgnsrekt/spx-greeks-api/internal/ws"
)

var (
	cfgFile string
	verbose bool
)

func setupLogger(verbose bool, logCfg *config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	// Set log level from config
	if logCfg != nil && logCfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logCfg.Level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return zapConfig.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "spx-greeks-api",
		Short: "SPX options exposure and regime classification API",
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("SPXGREEKS_CONFIG"), "config file path (or set SPXGREEKS_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(serveCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			logger, err := setupLogger(verbose, &cfg.Logging)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runServer(cmd.Context(), cfg, logger)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("symbol", cfg.Market.Symbol),
		zap.Int("cacheTTLSec", cfg.Cache.TTLSec),
		zap.String("defaultVIXRegime", cfg.Market.DefaultVIXRegime),
		zap.Bool("wsEnabled", cfg.WS.Enabled),
	)

	client := tradier.NewClient(
		cfg.Tradier.BaseURL,
		cfg.Tradier.Token,
		cfg.Tradier.RatePerSecond,
		time.Duration(cfg.Tradier.TimeoutSec)*time.Second,
		time.Duration(cfg.Tradier.RetryDelaySec)*time.Second,
		cfg.Tradier.RetryCount,
		logger,
	)

	cache := marketdata.NewCache(marketdata.Options{
		TTL:          cfg.Cache.TTL(),
		ServeStale:   cfg.Cache.ServeStaleOnErr,
		StaleCeiling: cfg.Cache.StaleCeiling(),
	}, logger)
	market := marketdata.NewService(client, cache, cfg.Market.Symbol)

	agg := exposure.NewAggregator(cfg.Market.RiskFreeRate, cfg.Market.DividendYield, logger)
	terrain := regime.NewTerrainClassifier(regime.DefaultTerrainRules, logger)

	defaultRegime, err := regime.ParseVIXRegime(cfg.Market.DefaultVIXRegime)
	if err != nil {
		return err
	}

	p := pipeline.New(market, agg, terrain, pipeline.Options{
		StrikeWindowPct:      cfg.Market.StrikeWindowPct,
		MaxExpirations:       cfg.Market.MaxExpirations,
		MaxMatrixExpirations: cfg.Market.MaxMatrixExpiry,
		MaxMatrixStrikes:     cfg.Market.MaxMatrixStrikes,
		DefaultVIXRegime:     defaultRegime,
	}, logger)

	srv := server.NewServer(p, cfg, logger)

	// Context for the hub and streamer goroutines
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wsHandler http.Handler
	if cfg.WS.Enabled {
		interval, err := cfg.WS.Interval()
		if err != nil {
			return err
		}

		hub := ws.NewHub(logger)
		go hub.Run(runCtx)

		streamer, err := ws.NewStreamer(hub, p, interval, logger)
		if err != nil {
			return err
		}
		go streamer.Run(runCtx)

		wsHandler = http.HandlerFunc(hub.HandleWS)
		logger.Info("WebSocket stream enabled", zap.Duration("interval", interval))
	}

	router, err := server.NewRouter(srv, wsHandler, logger)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Stop the WebSocket components
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server stopped")
	return nil
}
