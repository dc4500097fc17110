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

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"", logrus.InfoLevel},
		{"debug", logrus.DebugLevel},
		{"TRACE", logrus.TraceLevel},
		{"warn", logrus.WarnLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(Options{Level: tt.level}, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(Options{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = New(Options{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json"}, &buf)
	require.NoError(t, err)

	logger.WithField("round", 3).Info("Discovered block")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Discovered block", line["msg"])
	assert.EqualValues(t, 3, line["round"])
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miningsim.log")
	var console bytes.Buffer
	logger, err := New(Options{File: path}, &console)
	require.NoError(t, err)

	logger.Warn("Rejected action")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rejected action")
	assert.Contains(t, console.String(), "Rejected action")
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "info", opts.Level)
	assert.Equal(t, c_defaultMaxSize, opts.MaxSize)
}
