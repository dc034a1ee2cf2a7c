package app

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestNewDependencies_Memory(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, log.WithField("test", "deps"))
	if err != nil {
		t.Fatalf("new dependencies: %v", err)
	}
	defer deps.Close()

	if deps.Carts == nil || deps.Clients == nil || deps.Orders == nil ||
		deps.Products == nil || deps.Variants == nil || deps.Store == nil {
		t.Fatal("core repositories must be initialized")
	}
	if deps.Notes == nil || deps.Bills == nil || deps.Allocator == nil || deps.Currencies == nil {
		t.Fatal("document repositories must be initialized")
	}
	if deps.Outbox == nil || deps.Timeline == nil {
		t.Fatal("outbox and timeline repositories must be initialized")
	}
	if deps.PG != nil {
		t.Fatal("memory driver must not open postgres")
	}
}

func TestNewDependencies_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown storage driver")
	}
}

func TestNewDependencies_PostgresRequiresDSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = ""

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for postgres driver without DSN")
	}
}

func TestDependencies_CloseNil(_ *testing.T) {
	var deps *Dependencies
	deps.Close() // не должно паниковать
}
