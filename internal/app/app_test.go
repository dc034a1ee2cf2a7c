package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

// Run с in-memory хранилищем и без Kafka должен подняться, обслуживать
// health-пробы и корректно завершиться по отмене контекста.
func TestRun_MemoryBackend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	port := findFreePort(t)
	cfg := DefaultConfig()
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", port)

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, cfg)
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	waitForServer(t, base+"/livez")

	resp, err := http.Get(base + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected ready application, got %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestRun_UnknownDriverFails(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "tarantool"

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}
