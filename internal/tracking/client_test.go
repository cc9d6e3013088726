package tracking_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"slate/internal/tracking"
)

func TestNewClientRequiresSettings(t *testing.T) {
	if _, err := tracking.NewClient("", "slate", "key"); err == nil {
		t.Fatal("expected error when base url missing")
	}
	if _, err := tracking.NewClient("https://t.example.com", "slate", ""); err == nil {
		t.Fatal("expected error when api key missing")
	}
}

func TestRegisterPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/publishes" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("missing authorization header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":901}`))
	}))
	t.Cleanup(server.Close)

	client, err := tracking.NewClient(server.URL, "slate", "key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	record, err := client.RegisterPublish(context.Background(), tracking.PublishRequest{
		Name: "shot010.v001.fbx", Path: "/work/shot010.v001.fbx", Version: 1,
	})
	if err != nil {
		t.Fatalf("RegisterPublish: %v", err)
	}
	if record.ID != 901 {
		t.Fatalf("expected record id 901, got %d", record.ID)
	}
}

func TestRegisterPublishRequiresPath(t *testing.T) {
	client, err := tracking.NewClient("https://t.example.com", "slate", "key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.RegisterPublish(context.Background(), tracking.PublishRequest{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestFindEntityCachesLookups(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/entities/MocapTake/42" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"MocapTake","id":42,"fields":{"sg_subsession":true}}`))
	}))
	t.Cleanup(server.Close)

	client, err := tracking.NewClient(server.URL, "slate", "key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	for i := 0; i < 3; i++ {
		entity, err := client.FindEntity(context.Background(), "MocapTake", 42, []string{"sg_subsession"})
		if err != nil {
			t.Fatalf("FindEntity: %v", err)
		}
		if entity.ID != 42 {
			t.Fatalf("unexpected entity %+v", entity)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected 1 server hit with caching, got %d", hits.Load())
	}
}

func TestFindEntityMissingSignalsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client, err := tracking.NewClient(server.URL, "slate", "key")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.FindEntity(context.Background(), "Routine", 7, nil)
	if !errors.Is(err, tracking.ErrEntityUnavailable) {
		t.Fatalf("expected ErrEntityUnavailable, got %v", err)
	}
}
