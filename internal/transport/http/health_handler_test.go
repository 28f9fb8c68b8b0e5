package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"readyparser/internal/services"
	"readyparser/internal/shared/testutil"
	"readyparser/pkg/contracts"
)

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) HealthCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) ReadinessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) LivenessCheck(ctx context.Context) services.HealthStatus {
	return m.Called(ctx).Get(0).(services.HealthStatus)
}

func (m *MockHealthService) Version() services.VersionResponse {
	return m.Called().Get(0).(services.VersionResponse)
}

func TestHealthHandler_Endpoints(t *testing.T) {
	svc := new(MockHealthService)
	svc.On("HealthCheck", mock.Anything).Return(services.HealthStatus{Status: "ok"})
	svc.On("LivenessCheck", mock.Anything).Return(services.HealthStatus{Status: "alive"})
	svc.On("Version").Return(services.VersionResponse{VersionInfo: contracts.VersionInfo{Version: "1.2.3"}})

	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(svc, logger)

	tests := []struct {
		name    string
		handler http.HandlerFunc
		key     string
		want    string
	}{
		{name: "health", handler: h.HealthCheck, key: "status", want: "ok"},
		{name: "liveness", handler: h.LivenessCheck, key: "status", want: "alive"},
		{name: "version", handler: h.Version, key: "version", want: "1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.handler(rr, httptest.NewRequest(http.MethodGet, "/", nil))

			require.Equal(t, http.StatusOK, rr.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body[tt.key])
		})
	}
}

func TestHealthHandler_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     services.HealthStatus
		wantStatus int
	}{
		{name: "ready", status: services.HealthStatus{Status: "ready"}, wantStatus: http.StatusOK},
		{name: "not ready", status: services.HealthStatus{
			Status:   "not_ready",
			Services: map[string]services.ServiceHealth{"parsed_dir": {Status: "not_ready", Message: "gone"}},
		}, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockHealthService)
			svc.On("ReadinessCheck", mock.Anything).Return(tt.status)
			logger, _ := testutil.NewTestLogger(t)

			rr := httptest.NewRecorder()
			NewHealthHandler(svc, logger).ReadinessCheck(rr, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.status.Status)
		})
	}
}
