package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dormfix-api/pkg/config"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "dormfix-api"}, config.EnvDevelopment)
	require.NoError(t, err)
	assert.Nil(t, tel)
	assert.NoError(t, tel.Shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()
	assert.NotNil(t, ctx)
}
