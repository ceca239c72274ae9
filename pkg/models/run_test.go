package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryIdempotencyKey(t *testing.T) {
	at := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)

	key := RetryIdempotencyKey("run-123", at)
	assert.Equal(t, fmt.Sprintf("retry:run-123:%d", at.Unix()), key)

	// Two retries a second apart get distinct keys.
	other := RetryIdempotencyKey("run-123", at.Add(time.Second))
	assert.NotEqual(t, key, other)
}

func TestAutomationRun_Terminal(t *testing.T) {
	assert.False(t, (&AutomationRun{Status: RunStatusRunning}).Terminal())
	assert.True(t, (&AutomationRun{Status: RunStatusSucceeded}).Terminal())
	assert.True(t, (&AutomationRun{Status: RunStatusFailed}).Terminal())
	assert.True(t, (&AutomationRun{Status: RunStatusDryRun}).Terminal())
}
