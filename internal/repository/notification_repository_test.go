package repository

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/meit-app/meit/internal/model"
)

func TestSetMetadata(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewNotificationRepo(nil, zap.New(core))

	n := model.Notification{ID: "n1"}
	r.setMetadata(&n, []byte(`{"points":30,"location":"Café Central"}`))
	if n.Metadata["points"] != float64(30) || n.Metadata["location"] != "Café Central" {
		t.Fatalf("metadata = %v", n.Metadata)
	}

	empty := model.Notification{ID: "n2"}
	r.setMetadata(&empty, nil)
	if empty.Metadata != nil {
		t.Fatalf("empty blob decoded to %v", empty.Metadata)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %v", logs.All())
	}

	bad := model.Notification{ID: "n3", Title: "kept"}
	r.setMetadata(&bad, []byte(`{"points":`))
	if bad.Metadata != nil || bad.Title != "kept" {
		t.Fatalf("malformed blob: %+v", bad)
	}
	entries := logs.FilterMessage("malformed notification metadata").All()
	if len(entries) != 1 {
		t.Fatalf("got %d warnings, want 1", len(entries))
	}
	if id := entries[0].ContextMap()["notification_id"]; id != "n3" {
		t.Fatalf("notification_id = %v", id)
	}
}
