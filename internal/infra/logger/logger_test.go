package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureProductionWritesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	configure(l, "DEBUG", "Production", buf)

	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	l.WithField("component", "import").Info("Import done")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Import done", line["message"])
	assert.Equal(t, "import", line["component"])
	assert.Equal(t, "info", line["level"])
}

func TestConfigureInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	l := logrus.New()
	configure(l, "loud", "development", buf)

	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.Contains(t, buf.String(), "Invalid log level 'loud'")
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}
