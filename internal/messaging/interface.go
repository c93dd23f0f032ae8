package messaging

import (
	"context"
	"fmt"
)

// PublisherInterface is satisfied by the RabbitMQ publisher and by test doubles.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)

// PublishIntake announces a stored patient as registered or returned, depending
// on newPatient. A nil publisher is a no-op.
func PublishIntake(ctx context.Context, pub PublisherInterface, patientID int64, phoneNumber string, newPatient bool, source string) (string, error) {
	routingKey, event := NewPatientIntakeEvent(patientID, phoneNumber, newPatient, source)
	if pub == nil {
		return routingKey, nil
	}
	if err := pub.Publish(ctx, routingKey, event); err != nil {
		return routingKey, fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return routingKey, nil
}
