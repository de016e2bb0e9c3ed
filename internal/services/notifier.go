package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"fleetdispatch/internal/models"
	"fleetdispatch/pkg/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentEvent describes a committed assignment for downstream consumers.
type AssignmentEvent struct {
	Type                   string             `json:"type"`
	TripID                 primitive.ObjectID `json:"trip_id"`
	DriverID               primitive.ObjectID `json:"driver_id"`
	Status                 models.TripStatus  `json:"status"`
	MatchScore             float64            `json:"match_score"`
	AutoAccepted           bool               `json:"auto_accepted"`
	ReassignmentCount      int                `json:"reassignment_count"`
	EstimatedPickupMinutes int                `json:"estimated_pickup_minutes"`
	OccurredAt             time.Time          `json:"occurred_at"`
	DeviceToken            string             `json:"-"`
	DevicePlatform         string             `json:"-"`
}

// NewAssignmentEvent builds the event for an assignment result.
func NewAssignmentEvent(eventType string, result *models.AssignmentResult) *AssignmentEvent {
	return &AssignmentEvent{
		Type:                   eventType,
		TripID:                 result.Trip.ID,
		DriverID:               result.AssignedDriver.DriverID,
		Status:                 result.Trip.Status,
		MatchScore:             result.MatchScore,
		AutoAccepted:           result.AutoAccepted,
		ReassignmentCount:      result.ReassignmentCount,
		EstimatedPickupMinutes: result.AssignedDriver.EstimatedPickupMinutes,
		OccurredAt:             time.Now(),
		DeviceToken:            result.AssignedDriver.DeviceToken,
		DevicePlatform:         result.AssignedDriver.DevicePlatform,
	}
}

// AssignmentNotifier tells the outside world about an assignment. The
// matching core never calls it; the transport layer does after a commit.
type AssignmentNotifier interface {
	NotifyAssignment(ctx context.Context, event *AssignmentEvent) error
}

// MultiNotifier fans an event out to every notifier and joins the errors.
type MultiNotifier []AssignmentNotifier

func (m MultiNotifier) NotifyAssignment(ctx context.Context, event *AssignmentEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyAssignment(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PushNotifier sends the assigned driver a push message.
type PushNotifier struct {
	provider push.PushProvider
}

func NewPushNotifier(provider push.PushProvider) *PushNotifier {
	return &PushNotifier{provider: provider}
}

func (p *PushNotifier) NotifyAssignment(ctx context.Context, event *AssignmentEvent) error {
	if event.DeviceToken == "" {
		return nil
	}

	body := "You have a new trip request"
	if event.Status == models.TripStatusAccepted {
		body = "A trip was auto-accepted for you"
	}

	_, err := p.provider.SendNotification(ctx, &push.NotificationRequest{
		Token:    event.DeviceToken,
		Platform: event.DevicePlatform,
		Title:    "Trip assignment",
		Body:     body,
		Data: map[string]string{
			"type":                     event.Type,
			"trip_id":                  event.TripID.Hex(),
			"status":                   string(event.Status),
			"estimated_pickup_minutes": strconv.Itoa(event.EstimatedPickupMinutes),
		},
		CollapseKey: "trip-" + event.TripID.Hex(),
	})
	if err != nil {
		return fmt.Errorf("push notification for trip %s: %w", event.TripID.Hex(), err)
	}
	return nil
}

// EventPublisher is satisfied by pkg/events.KafkaPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, value interface{}) error
}

// EventNotifier publishes assignment events keyed by trip id.
type EventNotifier struct {
	publisher EventPublisher
}

func NewEventNotifier(publisher EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

func (e *EventNotifier) NotifyAssignment(ctx context.Context, event *AssignmentEvent) error {
	return e.publisher.Publish(ctx, event.Type, event.TripID.Hex(), event)
}
