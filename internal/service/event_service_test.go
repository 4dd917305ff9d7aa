package service

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
)

func TestEventService_Emit(t *testing.T) {
	svc := NewEventService(EventServiceConfig{RingBufferSize: 10}, testLogger())

	svc.Publish(domain.EventVideoAdded, domain.EventSeverityInfo, "test message", map[string]string{"id": "v1"})

	events := svc.GetRecent(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Message != "test message" {
		t.Errorf("expected message 'test message', got '%s'", ev.Message)
	}
	if ev.Type != domain.EventVideoAdded {
		t.Errorf("expected type video:added, got %s", ev.Type)
	}
	if ev.ID == "" || ev.Timestamp.IsZero() {
		t.Errorf("ID/Timestamp not filled: %+v", ev)
	}

	var data map[string]string
	if err := json.Unmarshal(ev.Data, &data); err != nil || data["id"] != "v1" {
		t.Errorf("Data = %s (err %v)", ev.Data, err)
	}
}

func TestEventService_DefaultSeverity(t *testing.T) {
	svc := NewEventService(EventServiceConfig{}, testLogger())
	svc.Emit(domain.Event{Type: domain.EventDrivesChanged})
	if got := svc.GetRecent(1)[0].Severity; got != domain.EventSeverityInfo {
		t.Errorf("Severity = %q, want info", got)
	}
}

func TestEventService_RingBuffer(t *testing.T) {
	svc := NewEventService(EventServiceConfig{RingBufferSize: 5}, testLogger())

	for i := 0; i < 10; i++ {
		svc.Publish(domain.EventVideoAdded, domain.EventSeverityInfo, fmt.Sprintf("message %d", i), nil)
	}

	events := svc.GetRecent(10)
	if len(events) != 5 {
		t.Fatalf("expected 5 events (ring buffer size), got %d", len(events))
	}
	if events[0].Message != "message 9" {
		t.Errorf("expected first event to be 'message 9', got '%s'", events[0].Message)
	}
	if events[4].Message != "message 5" {
		t.Errorf("expected last event to be 'message 5', got '%s'", events[4].Message)
	}
}

func TestEventService_SubscribeReceivesEvents(t *testing.T) {
	svc := NewEventService(EventServiceConfig{}, testLogger())

	id, ch := svc.Subscribe()
	defer svc.Unsubscribe(id)

	svc.Publish(domain.EventExportComplete, domain.EventSeveritySuccess, "done", nil)

	select {
	case ev := <-ch:
		if ev.Type != domain.EventExportComplete {
			t.Errorf("Type = %q", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}

func TestEventService_Unsubscribe(t *testing.T) {
	svc := NewEventService(EventServiceConfig{}, testLogger())

	id, ch := svc.Subscribe()
	if svc.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount = %d, want 1", svc.SubscriberCount())
	}
	svc.Unsubscribe(id)
	svc.Unsubscribe(id)

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	if svc.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", svc.SubscriberCount())
	}
}

func TestEventService_SlowSubscriberDoesNotBlock(t *testing.T) {
	svc := NewEventService(EventServiceConfig{SubscriberBuffer: 2}, testLogger())
	id, _ := svc.Subscribe()
	defer svc.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			svc.Publish(domain.EventExportProgress, domain.EventSeverityInfo, "tick", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full subscriber")
	}
}

func TestEventService_ConcurrentEmit(t *testing.T) {
	svc := NewEventService(EventServiceConfig{RingBufferSize: 1000}, testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				svc.Publish(domain.EventVideoAdded, domain.EventSeverityInfo, "x", nil)
			}
		}()
	}
	wg.Wait()

	if n := len(svc.GetRecent(1000)); n != 500 {
		t.Errorf("events = %d, want 500", n)
	}
}
