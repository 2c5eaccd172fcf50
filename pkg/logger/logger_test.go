package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTransitionUsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info")

	reqLogger := WithRequestID("req-42")
	ctx := NewContext(context.Background(), &reqLogger)

	OrderTransition(ctx, "ord-1", "INV-1", "status_changed", "pending", "confirmed", "admin-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.Equal(t, "confirmed", entry["to"])
	assert.Equal(t, "admin-1", entry["actor"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "error")
	defer InitWithWriter(&buf, "info")

	OrderRejected(context.Background(), "ord-1", "confirm", "admin-1", errors.New("payment is not verified"))
	assert.Zero(t, buf.Len())
}
