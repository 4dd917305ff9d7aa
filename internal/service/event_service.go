package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iconidentify/videosorter/internal/domain"
)

// EventServiceConfig configures the event service.
type EventServiceConfig struct {
	// RingBufferSize is the number of events to keep in memory.
	// Default: 500
	RingBufferSize int

	// SubscriberBuffer is the channel capacity per subscriber.
	// Default: 100
	SubscriberBuffer int
}

// DefaultEventServiceConfig returns sensible defaults.
func DefaultEventServiceConfig() EventServiceConfig {
	return EventServiceConfig{
		RingBufferSize:   500,
		SubscriberBuffer: 100,
	}
}

// EventService keeps recent events in a ring buffer and fans them out to
// subscribers (the console and SSE clients).
type EventService struct {
	cfg    EventServiceConfig
	logger *slog.Logger

	mu       sync.RWMutex
	events   []domain.Event
	head     int    // Next write position
	count    int    // Number of events in buffer
	eventSeq uint64 // Monotonic sequence for event IDs

	subMu       sync.RWMutex
	subscribers map[uint64]chan domain.Event
	subSeq      uint64
}

// NewEventService creates a new event service.
func NewEventService(cfg EventServiceConfig, logger *slog.Logger) *EventService {
	def := DefaultEventServiceConfig()
	if cfg.RingBufferSize <= 0 {
		cfg.RingBufferSize = def.RingBufferSize
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = def.SubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		cfg:         cfg,
		logger:      logger,
		events:      make([]domain.Event, cfg.RingBufferSize),
		subscribers: make(map[uint64]chan domain.Event),
	}
}

// Emit records an event and delivers it to subscribers.
func (s *EventService) Emit(event domain.Event) {
	if event.ID == "" {
		seq := atomic.AddUint64(&s.eventSeq, 1)
		event.ID = domain.EventID(fmt.Sprintf("evt_%d_%d", time.Now().UnixNano(), seq))
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = domain.EventSeverityInfo
	}

	s.mu.Lock()
	s.events[s.head] = event
	s.head = (s.head + 1) % s.cfg.RingBufferSize
	if s.count < s.cfg.RingBufferSize {
		s.count++
	}
	s.mu.Unlock()

	s.notifySubscribers(event)

	level := slog.LevelInfo
	switch {
	case event.Severity == domain.EventSeverityError:
		level = slog.LevelError
	case event.Severity == domain.EventSeverityWarning:
		level = slog.LevelWarn
	case event.Type == domain.EventExportProgress:
		level = slog.LevelDebug
	}
	s.logger.Log(context.Background(), level, "event emitted",
		"event_id", event.ID,
		"type", event.Type,
		"severity", event.Severity,
		"message", event.Message,
	)
}

// Publish marshals payload as the event data and emits it.
func (s *EventService) Publish(eventType domain.EventType, severity domain.EventSeverity, message string, payload any) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.logger.Warn("failed to marshal event payload", "type", eventType, "error", err)
		} else {
			data = b
		}
	}
	s.Emit(domain.Event{
		Type:     eventType,
		Severity: severity,
		Message:  message,
		Data:     data,
	})
}

// GetRecent returns up to n events, most recent first.
func (s *EventService) GetRecent(n int) []domain.Event {
	if n <= 0 {
		n = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := n
	if count > s.count {
		count = s.count
	}

	result := make([]domain.Event, 0, count)
	for i := 0; i < count; i++ {
		idx := (s.head - 1 - i + s.cfg.RingBufferSize) % s.cfg.RingBufferSize
		result = append(result, s.events[idx])
	}
	return result
}

// Subscribe registers a subscriber and returns its id and channel.
// Events are dropped for a subscriber whose buffer is full.
func (s *EventService) Subscribe() (uint64, <-chan domain.Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.subSeq++
	id := s.subSeq
	ch := make(chan domain.Event, s.cfg.SubscriberBuffer)
	s.subscribers[id] = ch

	s.logger.Debug("event subscriber added", "subscriber_id", id, "total_subscribers", len(s.subscribers))
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *EventService) Unsubscribe(id uint64) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *EventService) notifySubscribers(event domain.Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.logger.Warn("subscriber buffer full, dropping event", "subscriber_id", id, "event_id", event.ID)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *EventService) SubscriberCount() int {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	return len(s.subscribers)
}
