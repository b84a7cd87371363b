package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/grpclog"

	"github.com/copyleftdev/bayesopt/internal/config"
	apperrors "github.com/copyleftdev/bayesopt/internal/errors"
	"github.com/copyleftdev/bayesopt/internal/logging"
	"github.com/copyleftdev/bayesopt/internal/persistence"
	"github.com/copyleftdev/bayesopt/internal/server"
)

const (
	serviceName    = "bayesopt-server"
	serviceVersion = "1.0.0"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use standard logger as fallback if config loading fails
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize base logger
	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	grpclog.SetLoggerV2(logging.NewGRPCAdapter(logger.Named("grpc"), 0))

	ctx := context.Background()

	serviceLogger := logger.WithFields(map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
	})

	opts, cleanup, err := serverOptions(ctx, cfg, serviceLogger)
	if err != nil {
		serviceLogger.Fatal("Failed to initialize server dependencies", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Create router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(logger))
	r.Use(apperrors.RecoveryMiddleware(serviceLogger))
	r.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	// Add request context logger
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLogger := serviceLogger.WithFields(map[string]interface{}{
				"request_id": middleware.GetReqID(r.Context()),
			})
			reqCtx := (&logging.CtxLogger{Logger: reqLogger}).WithContext(r.Context())
			next.ServeHTTP(w, r.WithContext(reqCtx))
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	srv := server.NewServer(cfg, serviceLogger, opts...)
	srv.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		serviceLogger.Info("Starting HTTP server", map[string]interface{}{
			"address": httpServer.Addr,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serviceLogger.Fatal("Failed to start HTTP server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPC.Enabled {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
		if err != nil {
			serviceLogger.Fatal("Failed to listen for gRPC", map[string]interface{}{
				"port":  cfg.GRPC.Port,
				"error": err.Error(),
			})
		}
		grpcServer = server.NewGRPCServer(srv, serviceLogger)
		go func() {
			serviceLogger.Info("Starting gRPC server", map[string]interface{}{
				"address": lis.Addr().String(),
			})
			if err := grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
				serviceLogger.Fatal("Failed to serve gRPC", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serviceLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		serviceLogger.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	if err := srv.Close(); err != nil {
		serviceLogger.Error("Error closing server resources", map[string]interface{}{"error": err.Error()})
	}

	if err := cleanup(shutdownCtx); err != nil {
		serviceLogger.Error("Error flushing traces", map[string]interface{}{"error": err.Error()})
	}

	serviceLogger.Info("Server exited properly")
}

// serverOptions builds the configuration store, the snapshot store and the
// tracer. The returned cleanup flushes the tracer provider.
func serverOptions(ctx context.Context, cfg *config.Config, logger *logging.Logger) ([]server.Option, func(context.Context) error, error) {
	configs := config.NewStore()
	if path := cfg.Optimization.ConfigFile; path != "" {
		if err := configs.LoadFile(path); err != nil {
			return nil, nil, err
		}
		logger.Info("Loaded optimizer configs", map[string]interface{}{
			"path":  path,
			"names": configs.Names(),
		})
	}
	opts := []server.Option{server.WithConfigStore(configs)}

	store, err := snapshotStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		opts = append(opts, server.WithSnapshotStore(store))
	}

	cleanup := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		opts = append(opts, server.WithTracer(tp.Tracer(serviceName)))
		cleanup = tp.Shutdown
		logger.Info("Tracing enabled", map[string]interface{}{"exporter": cfg.Tracing.Exporter})
	}

	return opts, cleanup, nil
}

func snapshotStore(ctx context.Context, cfg *config.Config, logger *logging.Logger) (persistence.SnapshotStore, error) {
	switch cfg.Storage.Type {
	case "fs":
		logger.Info("Using filesystem snapshot store", map[string]interface{}{"dir": cfg.Storage.Dir})
		return persistence.NewFSStore(cfg.Storage.Dir, logger.Zap().Named("snapshots"))
	case "postgres":
		logger.Info("Using postgres snapshot store")
		return persistence.NewPostgresStore(ctx, cfg.Storage.DSN, cfg.Storage.MaxConns)
	default:
		return nil, nil
	}
}
