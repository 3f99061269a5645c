package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_JSONFieldNames(t *testing.T) {
	l := logrus.New()
	_, err := Configure(l, Options{Level: "info", Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.WithField("component", "engine").Info("swap confirmed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "swap confirmed", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "engine", line["component"])
	assert.Contains(t, line, "timestamp")
}

func TestConfigure_Level(t *testing.T) {
	l := logrus.New()
	_, err := Configure(l, Options{Level: "WARN", Format: "text"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.False(t, l.ReportCaller)
}

func TestConfigure_Invalid(t *testing.T) {
	_, err := Configure(logrus.New(), Options{Level: "invalid"})
	assert.Error(t, err)

	_, err = Configure(logrus.New(), Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestConfigure_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	l := logrus.New()
	closer, err := Configure(l, Options{Level: "info", Format: "json", Output: path, MaxAgeDays: 1, MaxSizeMB: 1})
	require.NoError(t, err)

	l.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestComponent(t *testing.T) {
	entry := Component("monitor")
	assert.Equal(t, "monitor", entry.Data["component"])
}
