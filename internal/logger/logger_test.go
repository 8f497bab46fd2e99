package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", &buf)

	log.Error("stock_withdraw_failed", "Withdrawal rejected", "req-1", errors.New("insufficient stock"), map[string]interface{}{
		"ingredient_id": 7,
	})

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "Withdrawal rejected", record["msg"])
	assert.Equal(t, "order-service", record["service"])
	assert.Equal(t, "stock_withdraw_failed", record["action"])
	assert.Equal(t, "req-1", record["request_id"])

	errGroup, ok := record["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "insufficient stock", errGroup["msg"])

	details, ok := record["details"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 7, details["ingredient_id"])
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestID(ctx))
	assert.Equal(t, "", RequestID(context.Background()))
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
}
