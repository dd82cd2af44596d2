package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		l, err := New(env, "")
		if err != nil {
			t.Errorf("New(%q): %v", env, err)
			continue
		}
		_ = l.Sync()
	}
}

func TestNew_LevelOverride(t *testing.T) {
	l, err := New("prod", "warn")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}

	if _, err := New("prod", "loud"); err == nil {
		t.Fatal("invalid level must be rejected")
	}
}
