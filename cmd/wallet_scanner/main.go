package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"wallet_scanner/internal/app/service"
	dexclient "wallet_scanner/internal/client"
	"wallet_scanner/internal/config"
	"wallet_scanner/internal/infrastructure/network/client"
	"wallet_scanner/internal/infrastructure/provider"
	"wallet_scanner/internal/infrastructure/restapi"
	"wallet_scanner/internal/pkg/metrics"
	"wallet_scanner/internal/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

func main() {
	// The config package logs with logrus; give it a JSON formatter before
	// anything loads.
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := newZapLogger(cfg.Logging.Level)
	if err != nil {
		logrus.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync() // flushes buffer, if any

	// Bridge slog onto zap for anything that logs through the standard API.
	slogHandler := zapslog.NewHandler(zapLogger.Core())
	slog.SetDefault(slog.New(slogHandler))

	zapLogger.Info("Configuration loaded", zap.String("path", cfgPath))

	metrics.MustRegisterMetrics()

	primaryTarget, secondaryTarget := cfg.Targets()
	zapLogger.Info("Chain targets configured",
		zap.String("primary", primaryTarget.Name),
		zap.Uint64("primaryChainId", primaryTarget.ChainID),
		zap.String("secondary", secondaryTarget.Name),
		zap.Uint64("secondaryChainId", secondaryTarget.ChainID))

	dialTimeout := time.Duration(cfg.RpcClient.ConnectionTimeoutMs) * time.Millisecond
	providerFactory := provider.NewFactory(cfg.App, cfg.Accounts, dialTimeout, zapLogger)

	readerProvider := client.NewEVMClientProvider(cfg, zapLogger)

	dexScreenerRequestTimeout := time.Duration(cfg.DEXScreener.RequestTimeoutMillis) * time.Millisecond
	dexScreenerClient := dexclient.NewDEXScreenerClient(cfg.DEXScreener.BaseURL, dexScreenerRequestTimeout, zapLogger)
	tokenPriceService := service.NewTokenPriceService(cfg, dexScreenerClient, zapLogger)
	zapLogger.Info("TokenPriceService initialized with DEXScreener client")

	reconciler := service.NewChainReconciler(zapLogger)
	sessionService := service.NewSessionService(
		cfg,
		providerFactory,
		readerProvider,
		reconciler,
		tokenPriceService,
		primaryTarget,
		zapLogger,
	)
	zapLogger.Info("SessionService initialized")

	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true // Adjust for production
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(utils.ZapLoggerMiddleware(zapLogger))
	router.Use(gin.Recovery())

	sessionHandler := restapi.NewSessionHandler(sessionService)
	restapi.RegisterSessionRoutes(router, sessionHandler)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	zapLogger.Info("Prometheus metrics endpoint enabled", zap.String("path", "/metrics"))

	// Pprof endpoints (for debugging performance issues)
	pprofRouter := router.Group("/debug/pprof")
	{
		pprofRouter.GET("/", gin.WrapF(pprof.Index))
		pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
		pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
		pprofRouter.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
		pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}

func newZapLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	return zapConfig.Build()
}
