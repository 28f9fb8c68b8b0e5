package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"readyparser/internal/batch"
	"readyparser/internal/config"
	apierrors "readyparser/internal/errors"
	"readyparser/internal/files"
	"readyparser/internal/infrastructure"
	"readyparser/internal/lifecycle"
	customMiddleware "readyparser/internal/middleware"
	"readyparser/internal/services"
	handlers "readyparser/internal/transport/http"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts"
)

// AppName is logged at startup.
const AppName = "Lifecycle Report Service"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.ReportMetrics
	ErrorHandler  *apierrors.ErrorHandler
	ReportService *services.ReportService
	HealthService *services.HealthService
	validator     *customMiddleware.ReportValidator
}

// NewApplication wires the services, router and HTTP server from cfg. The
// logger and telemetry providers are created by the caller.
func NewApplication(cfg *config.Config, logger *slog.Logger, providers *infrastructure.OTelProviders) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if providers == nil {
		var err error
		providers, err = infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
		}
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the engine, batch runner and services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateReportMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Metrics = metrics

	limits, err := validation.NewLimits(a.Config.Report.MinDate, a.Config.Report.MaxDate)
	if err != nil {
		return apierrors.NewConfigError("invalid report date limits", err).
			WithContext("min_date", a.Config.Report.MinDate).
			WithContext("max_date", a.Config.Report.MaxDate)
	}
	dateFormat, err := lifecycle.ParseDateFormat(a.Config.Report.DefaultDateFormat)
	if err != nil {
		return apierrors.NewConfigError("invalid default date format", err).
			WithContext("date_format", a.Config.Report.DefaultDateFormat)
	}

	engine := lifecycle.NewEngine(a.Logger,
		lifecycle.WithTracer(a.OTelProviders.Tracer),
		lifecycle.WithRecorder(metrics))
	runner := batch.NewRunner(engine, a.Logger,
		batch.WithWorkers(a.Config.Report.BatchWorkers),
		batch.WithRecorder(metrics))

	a.ReportService = services.NewReportService(engine, runner, files.NewStager(a.Paths, a.Logger),
		services.ReportServiceConfig{
			Limits:            limits,
			DefaultDateFormat: dateFormat,
			MaxFiles:          a.Config.Report.MaxFiles,
			KeepStaging:       a.Config.Report.KeepStaging,
		}, a.Logger)
	a.HealthService = services.NewHealthService(a.Paths, a.Logger)
	a.validator = customMiddleware.NewReportValidator(limits, a.Logger)

	return nil
}

// setupRouter configures the HTTP router with all routes.
// Middleware order: RequestID → RealIP → OTel → Logger → Recoverer →
// SecurityHeaders → CORS → RateLimiter → Timeout
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	// Prometheus scrapes stay outside tracing and rate limiting.
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger, a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		reportHandler := handlers.NewReportHandler(a.ReportService, a.validator, handlers.ReportHandlerConfig{
			MaxUploadBytes: a.Config.Report.MaxUploadMB << 20,
			MaxFiles:       a.Config.Report.MaxFiles,
		}, a.Logger, a.ErrorHandler)
		r.Mount("/reports", reportHandler.Routes())
	})
}

// getCORSConfig builds the CORS policy from the security settings
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-ID",
			"X-Report-Records-Kept",
			"X-Report-Warnings",
			"X-Batch-Succeeded",
			"X-Batch-Failed",
			"X-Batch-Skipped",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start serves HTTP until the server is shut down
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.Logger.Info("Received shutdown signal")
	}

	if err := a.Stop(context.Background()); err != nil {
		return err
	}
	return <-errCh
}

// performStartupHealthCheck verifies the staging directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	status := a.HealthService.ReadinessCheck(ctx)
	if status.Status == "ready" {
		a.Logger.InfoContext(ctx, "Startup health check passed")
		return nil
	}

	var failed []error
	for name, sh := range status.Services {
		if sh.Status != "ready" {
			failed = append(failed, fmt.Errorf("%s: %s", name, sh.Message))
		}
	}
	return errors.Join(failed...)
}
