package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo_Formats(t *testing.T) {
	dev := NewLoggerTo(&bytes.Buffer{}, "identity", "development")
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)

	prod := NewLoggerTo(&bytes.Buffer{}, "identity", "production")
	assert.Equal(t, logrus.InfoLevel, prod.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)
}

func TestLogError_AddsErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "identity", "production")

	LogError(logger, "create user failed", errors.New("db down"), logrus.Fields{"email": "a@b.com"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "create user failed", entry["msg"])
	assert.Equal(t, "db down", entry["error"])
	assert.Equal(t, "a@b.com", entry["email"])
	assert.Equal(t, "error", entry["level"])
}
