package tabstash

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFacadeUseSwapsBackend(t *testing.T) {
	local := &recordingBackend{kind: "local"}
	remote := &recordingBackend{kind: "remote"}
	facade := NewFacade(local, nil)

	if facade.Backend().Kind() != "local" {
		t.Fatalf("expected local backend active, got %s", facade.Backend().Kind())
	}
	facade.Use(remote)
	if facade.Backend().Kind() != "remote" {
		t.Fatalf("expected remote backend active, got %s", facade.Backend().Kind())
	}

	ctx := context.Background()
	if err := facade.Save(ctx, NewCollection()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if len(remote.saved) != 1 || len(local.saved) != 0 {
		t.Fatalf("expected save routed to remote backend")
	}
}

func TestFacadeSavePropagatesFailure(t *testing.T) {
	backend := &recordingBackend{kind: "remote", saveErr: errors.New("quota exceeded")}
	facade := NewFacade(backend, nil)

	err := facade.Save(context.Background(), NewCollection())
	if err == nil {
		t.Fatalf("expected save failure to propagate")
	}
	if !strings.Contains(err.Error(), "remote backend") {
		t.Fatalf("expected backend kind in error, got %v", err)
	}
}

func TestFacadeLoadDegradesToEmpty(t *testing.T) {
	backend := &recordingBackend{loadErr: errors.New("unavailable")}
	facade := NewFacade(backend, nil)

	col := facade.Load(context.Background())
	if col.Worksheets == nil || len(col.Worksheets) != 0 {
		t.Fatalf("expected empty collection on load failure, got %+v", col)
	}
}

func TestFacadeWithoutBackend(t *testing.T) {
	facade := NewFacade(nil, nil)
	if err := facade.Save(context.Background(), NewCollection()); !errors.Is(err, ErrStorageFailure) {
		t.Fatalf("expected storage failure without backend, got %v", err)
	}
	col := facade.Load(context.Background())
	if len(col.Worksheets) != 0 {
		t.Fatalf("expected empty collection without backend, got %+v", col)
	}
}
