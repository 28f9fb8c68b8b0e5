package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"readyparser/internal/config"
	"readyparser/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	paths     *config.Paths
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// VersionResponse is the payload of the version endpoint
type VersionResponse struct {
	contracts.VersionInfo
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`
}

// NewHealthService creates a health service that checks the staging
// directories in paths.
func NewHealthService(paths *config.Paths, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "health"))
	logger.Info("HealthService initialized",
		slog.String("version", contracts.Version))

	return &HealthService{
		paths:     paths,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports whether the staging directories are usable.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"unparsed_dir": checkWritableDir(hs.paths.UnparsedDir),
			"parsed_dir":   checkWritableDir(hs.paths.ParsedDir),
		},
	}

	for name, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("check", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() VersionResponse {
	return VersionResponse{
		VersionInfo:   contracts.GetVersionInfo(),
		UptimeSeconds: time.Since(hs.startTime).Seconds(),
		StartTime:     hs.startTime.Format(time.RFC3339),
	}
}

func checkWritableDir(dir string) ServiceHealth {
	info, err := os.Stat(dir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("directory unavailable: %v", err)}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	probe, err := os.CreateTemp(dir, ".ready-*")
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("directory not writable: %v", err)}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{Status: "ready"}
}
