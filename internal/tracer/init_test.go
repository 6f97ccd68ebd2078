package tracer

import (
	"context"
	"testing"

	"kernel-workspace-be/internal/config"
	"kernel-workspace-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestInitTracerDisabledIsNoop(t *testing.T) {
	cfg := &config.Config{}
	shutdown := InitTracer(cfg, logger.NewNopLogger())
	assert.NoError(t, shutdown(context.Background()))
}
