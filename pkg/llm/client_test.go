package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleVerdict struct {
	Urgency string `json:"urgency" jsonschema:"enum=low,enum=medium,enum=high,enum=critical"`
	Reason  string `json:"reason"`
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)

	c, err := New(Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, c.Model())
}

func TestGenerateSchemaIsClosed(t *testing.T) {
	schema := GenerateSchema[sampleVerdict]()
	raw, err := json.Marshal(schema)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, false, doc["additionalProperties"])
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "urgency")
	assert.Contains(t, props, "reason")
}

func TestDecode(t *testing.T) {
	var v sampleVerdict
	require.NoError(t, Decode(`{"urgency":"high","reason":"sparks"}`, &v))
	assert.Equal(t, "high", v.Urgency)

	assert.Error(t, Decode("", &v))
	assert.Error(t, Decode("not json", &v))
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.True(t, IsRetryable(errors.New("connection reset")))
}
