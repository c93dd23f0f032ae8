package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/messaging"
)

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

// PublishedEvent is one message captured by MockPublisher
type PublishedEvent struct {
	RoutingKey string
	RawJSON    []byte
}

// Intake decodes the captured message as a patient intake event.
func (e PublishedEvent) Intake(t *testing.T) messaging.PatientIntakeEvent {
	t.Helper()

	var event messaging.PatientIntakeEvent
	if err := json.Unmarshal(e.RawJSON, &event); err != nil {
		t.Fatalf("Failed to decode intake event: %v", err)
	}
	return event
}

// MockPublisher records events in memory instead of talking to RabbitMQ.
// Set Err to make every Publish fail.
type MockPublisher struct {
	mu     sync.RWMutex
	events []PublishedEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish stores the JSON form of eventData, exactly as the broker would receive it.
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	jsonData, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.events = append(m.events, PublishedEvent{RoutingKey: routingKey, RawJSON: jsonData})
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// GetEventsByKey returns all events with the specified routing key
func (m *MockPublisher) GetEventsByKey(routingKey string) []PublishedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var filtered []PublishedEvent
	for _, event := range m.events {
		if event.RoutingKey == routingKey {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// AssertEventCount asserts the exact number of events with the given routing key
func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()

	if count := len(m.GetEventsByKey(routingKey)); count != expected {
		t.Errorf("Expected %d events with routing key '%s', got %d", expected, routingKey, count)
	}
}

// LastEventByKey returns the most recent event with the given routing key, or nil.
func (m *MockPublisher) LastEventByKey(routingKey string) *PublishedEvent {
	events := m.GetEventsByKey(routingKey)
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}
