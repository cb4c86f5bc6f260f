package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	if FromContext(context.Background()) != zap.L() {
		t.Fatalf("expected global logger")
	}
}

func TestFromContext_ReturnsStored(t *testing.T) {
	l := zap.NewNop().With(zap.String("request_id", "r1"))
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected stored logger")
	}
}

func TestNew_Levels(t *testing.T) {
	log, err := New("test", "debug", "production")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug level enabled")
	}
	if OrNop(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}
