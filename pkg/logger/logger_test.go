package logger

import (
	"learning_platform_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	cases := []struct {
		mode, level string
		want        zapcore.Level
	}{
		{"debug", "", zapcore.DebugLevel},
		{"release", "", zapcore.InfoLevel},
		{"debug", "warn", zapcore.WarnLevel},
		{"release", "loud", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		cfg := &config.Config{Server: config.ServerConfig{Mode: tc.mode}, Log: config.LogConfig{Level: tc.level}}
		assert.Equal(t, tc.want, Level(cfg), "%s/%s", tc.mode, tc.level)
	}
}
