package eventbus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/appflow/pkg/events"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// Publish sends event on the application topic; key is usually the application id.
func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

// Subscribe starts delivering messages to the registered handlers until ctx is done.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event := newEvent(eventType)
	if event == nil {
		msg.Nack()

		return
	}

	if err := json.Unmarshal(msg.Payload, event); err != nil {
		msg.Nack()

		return
	}

	if err := handler(ctx, event); err != nil {
		msg.Nack()

		return
	}

	msg.Ack()
}

func newEvent(eventType events.EventType) any {
	switch eventType {
	case events.ApplicationCreatedEvent:
		return &events.ApplicationCreated{}
	case events.DocumentUploadedEvent, events.DocumentVerifiedEvent, events.DocumentRejectedEvent:
		return &events.DocumentChanged{}
	case events.WorkflowStartedEvent, events.WorkflowAdvancedEvent, events.WorkflowSentBackEvent,
		events.WorkflowRejectedEvent, events.WorkflowCompletedEvent:
		return &events.WorkflowChanged{}
	case events.StepSLABreachedEvent:
		return &events.StepSLABreached{}
	default:
		return nil
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

// HandleAll registers handler for every event type.
func (eb *WatermillEventBus) HandleAll(handler EventHandler) {
	for _, eventType := range AllEventTypes() {
		_ = eb.Handle(eventType, handler)
	}
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}

// AllEventTypes lists every event type carried by the bus.
func AllEventTypes() []events.EventType {
	return []events.EventType{
		events.ApplicationCreatedEvent,
		events.DocumentUploadedEvent,
		events.DocumentVerifiedEvent,
		events.DocumentRejectedEvent,
		events.WorkflowStartedEvent,
		events.WorkflowAdvancedEvent,
		events.WorkflowSentBackEvent,
		events.WorkflowRejectedEvent,
		events.WorkflowCompletedEvent,
		events.StepSLABreachedEvent,
	}
}
