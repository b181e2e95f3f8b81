package notify

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventMarshalShape(t *testing.T) {
	event := Event{
		Type:    EventBuildCompleted,
		Project: "demo",
		BuildID: "abc-123",
		Time:    time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Detail:  map[string]string{"duration": "1.2s"},
	}
	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["type"] != "build.completed" {
		t.Errorf("expected type build.completed, got %v", decoded["type"])
	}
	if decoded["build_id"] != "abc-123" {
		t.Errorf("expected build_id abc-123, got %v", decoded["build_id"])
	}
	if _, ok := decoded["detail"]; !ok {
		t.Error("expected detail to be present")
	}
}

func TestEventDetailOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(Event{Type: EventBuildStarted})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["detail"]; ok {
		t.Error("expected empty detail to be omitted")
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(t.Context(), Event{Type: EventBuildFailed}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
