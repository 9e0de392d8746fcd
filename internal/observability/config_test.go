package observability

import (
	"testing"

	"github.com/smallbiznis/schoolbilling/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigProjectsTelemetry(t *testing.T) {
	cfg := LoadConfig(config.Config{
		AppVersion:  "1.2.3",
		Environment: "production",
		Telemetry: config.TelemetryConfig{
			LogLevel:      "info",
			LogFormat:     "json",
			OtelEnabled:   true,
			OTLPEndpoint:  "collector:4317",
			OTLPProtocol:  "grpc",
			SamplingRatio: 0.5,
		},
	})

	assert.Equal(t, "schoolbilling", cfg.ServiceName)
	assert.False(t, cfg.Debug())
	assert.Equal(t, "collector:4317", cfg.Tracing().ExporterEndpoint)
	assert.Equal(t, 0.5, cfg.Tracing().SamplingRatio)
	assert.True(t, cfg.Metrics().Enabled)
	assert.False(t, cfg.Logger().IncludeStackOnError)
}

func TestDebugInDevelopmentOrDebugLevel(t *testing.T) {
	assert.True(t, LoadConfig(config.Config{Environment: "local"}).Debug())
	assert.True(t, LoadConfig(config.Config{
		Environment: "production",
		Telemetry:   config.TelemetryConfig{LogLevel: "debug"},
	}).Debug())
}
