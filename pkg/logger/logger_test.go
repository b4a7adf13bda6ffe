package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  zapcore.Level
	}{
		{"debug", "debug", zapcore.DebugLevel},
		{"info", "info", zapcore.InfoLevel},
		{"warn", "warn", zapcore.WarnLevel},
		{"error", "error", zapcore.ErrorLevel},
		{"empty defaults to info", "", zapcore.InfoLevel},
		{"environment name is not a level", "development", zapcore.InfoLevel},
		{"garbage defaults to info", "loud", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInit_AppliesConfiguredLevel(t *testing.T) {
	err := Init(&Config{Level: "warn", ServiceName: "test"})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Sync()

	log := Get()
	if log.zap.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !log.zap.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestGet_BeforeInitIsNoOp(t *testing.T) {
	mu.Lock()
	saved := global
	global = nil
	mu.Unlock()
	defer func() {
		mu.Lock()
		global = saved
		mu.Unlock()
	}()

	log := Get()
	if log == nil {
		t.Fatal("Get() returned nil")
	}
	// Must not panic
	log.Info("noop")
}
