package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mdthewzrd/chartscan/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{name: "debug level", level: "debug"},
		{name: "info level", level: "info"},
		{name: "unknown level defaults to info", level: "nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(&config.Config{LogLevel: tt.level, LogFormat: "json", Env: "development"})
			assert.NotNil(t, log)

			// Field chaining must not mutate the parent logger.
			child := log.WithField("component", "test").WithFields(map[string]interface{}{
				"a": 1,
				"b": "two",
			})
			assert.NotNil(t, child)
			child.Debug("debug message")
			child.Info("info message")
		})
	}
}

func TestNewNop(t *testing.T) {
	log := NewNop()
	log.Info("discarded")
	log.WithError(assert.AnError).Error("also discarded")
	assert.NotNil(t, log.Zerolog())
}
