package http

import (
	"context"

	"readyparser/internal/lifecycle"
	"readyparser/internal/services"
)

// ReportServiceInterface defines the report operations used by the handlers
type ReportServiceInterface interface {
	Options() services.ReportOptions
	GenerateFile(ctx context.Context, upload services.Upload, name string, p lifecycle.Params) (*services.FileReport, error)
	GenerateFolder(ctx context.Context, uploads []services.Upload, p lifecycle.Params) (*services.FolderReport, error)
}

// HealthServiceInterface defines the health operations used by the handlers
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() services.VersionResponse
}
