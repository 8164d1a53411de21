package logging

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatEntry(t *testing.T, f *TextFormatter, entry *logrus.Entry) string {
	t.Helper()
	out, err := f.Format(entry)
	require.NoError(t, err)
	return string(out)
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "Created session",
		Data: logrus.Fields{
			"component": "session",
			"branch":    "feature-x",
			"agent":     "claude-code",
		},
	}

	out := formatEntry(t, f, entry)
	assert.Equal(t, "2025-03-01 12:30:00 [INFO] [session] Created session agent=claude-code branch=feature-x\n", out)
}

func TestTextFormatterWarnTag(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.WarnLevel,
		Message: "Could not close terminal window",
		Data:    logrus.Fields{},
	}

	out := formatEntry(t, f, entry)
	assert.Equal(t, "[WARN] Could not close terminal window\n", out)
}

func TestTextFormatterSimplePreset(t *testing.T) {
	f := &TextFormatter{Config: FormatConfig{
		DisableTimestamp: true,
		DisableComponent: true,
	}}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.DebugLevel,
		Message: "scan complete",
		Data:    logrus.Fields{"component": "cleanup", "found": 3},
	}

	out := formatEntry(t, f, entry)
	assert.Equal(t, "[DEBUG] scan complete found=3\n", out)
}

func TestNewLoggerIsSingletonPerComponent(t *testing.T) {
	first := NewLogger("formatter-test")
	second := NewLogger("formatter-test")
	assert.Same(t, first, second)
	assert.Equal(t, "formatter-test", first.Data["component"])
}
