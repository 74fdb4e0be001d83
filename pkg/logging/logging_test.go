package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("nodes", 3).Info("Company graph built")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Company graph built", entry["msg"])
	assert.Equal(t, 3.0, entry["nodes"])
}

func TestNewWithOutput_TextDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "", "")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	_, err = New("loud", "text")
	assert.Error(t, err)
}
