package gcppubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"billplan/mq/mq"
)

const (
	planIDAttribute = "planId"
)

// subscriptionInfo holds details about an active Pub/Sub subscription.
type subscriptionInfo struct {
	gcpSubscription *pubsub.Subscription
	cancel          context.CancelFunc
}

// GenericPubSubService provides a generic implementation for GCP Pub/Sub
// operations. Routing by plan happens server-side via subscription filters on
// the planId attribute.
type GenericPubSubService[M any] struct {
	client              *pubsub.Client
	topic               *pubsub.Topic
	activeSubscriptions map[uuid.UUID]*subscriptionInfo
	subscriptionsMutex  sync.Mutex
	ctx                 context.Context
}

// NewGenericPubSubService creates a generic service for a specific message
// type, creating the underlying topic if it does not exist yet.
func NewGenericPubSubService[M any](ctx context.Context, client *pubsub.Client, topicID string) (*GenericPubSubService[M], error) {
	if client == nil {
		return nil, fmt.Errorf("GCP Pub/Sub client is nil")
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existence of topic %s: %w", topicID, err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("failed to create topic %s: %w", topicID, err)
		}
		slog.Info("created Pub/Sub topic", "topic", topicID)
	}

	return &GenericPubSubService[M]{
		client:              client,
		topic:               topic,
		activeSubscriptions: make(map[uuid.UUID]*subscriptionInfo),
		ctx:                 ctx,
	}, nil
}

// Publish sends a message to the configured topic with the planId attribute
// that subscription filters match against.
func (s *GenericPubSubService[M]) Publish(msg mq.TopicProvider) error {
	typeName := reflect.TypeOf(msg).Name()
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", typeName, err)
	}

	pubsubMsg := &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			planIDAttribute: msg.GetTopic().String(),
		},
	}

	result := s.topic.Publish(s.ctx, pubsubMsg)
	_, err = result.Get(s.ctx)
	if err != nil {
		return fmt.Errorf("failed to publish %s to topic %s: %w", typeName, s.topic.ID(), err)
	}
	return nil
}

// Subscribe creates a new filtered subscription on GCP and starts listening.
func (s *GenericPubSubService[M]) Subscribe(planID uuid.UUID) (uuid.UUID, <-chan M, error) {
	subscriptionID := uuid.New()
	typeName := reflect.TypeOf(*new(M)).Name()

	gcpSubName := fmt.Sprintf("sub-%s-%s-%s", typeName, planID.String(), subscriptionID.String())

	config := pubsub.SubscriptionConfig{
		Topic:            s.topic,
		Filter:           fmt.Sprintf("attributes.%s = \"%s\"", planIDAttribute, planID.String()),
		ExpirationPolicy: 24 * time.Hour,
		AckDeadline:      10 * time.Second,
	}

	gcpSub, err := s.client.CreateSubscription(s.ctx, gcpSubName, config)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to create GCP subscription %s for %s: %w", gcpSubName, typeName, err)
	}

	msgChan := make(chan M, 5)
	receiveCtx, cancel := context.WithCancel(s.ctx)

	s.subscriptionsMutex.Lock()
	s.activeSubscriptions[subscriptionID] = &subscriptionInfo{
		gcpSubscription: gcpSub,
		cancel:          cancel,
	}
	s.subscriptionsMutex.Unlock()

	go func() {
		defer func() {
			s.subscriptionsMutex.Lock()
			delete(s.activeSubscriptions, subscriptionID)
			s.subscriptionsMutex.Unlock()

			// Delete the subscription from GCP to prevent resource leaks.
			if deleteErr := gcpSub.Delete(context.Background()); deleteErr != nil {
				slog.Error("error deleting GCP subscription", "subscription", gcpSub.ID(), "error", deleteErr)
			}
			close(msgChan)
		}()

		// Receive blocks until the context is cancelled.
		err := gcpSub.Receive(receiveCtx, func(ctx context.Context, pubsubMsg *pubsub.Message) {
			pubsubMsg.Ack()

			var msg M
			if err := json.Unmarshal(pubsubMsg.Data, &msg); err != nil {
				slog.Warn("dropping undecodable message", "type", typeName, "subscription", subscriptionID, "error", err)
				return
			}

			select {
			case msgChan <- msg:
			case <-time.After(2 * time.Second):
				slog.Warn("slow subscriber, skipping message", "type", typeName, "subscription", subscriptionID)
			case <-receiveCtx.Done():
				return
			}
		})

		if err != nil && err != context.Canceled {
			slog.Error("receive loop stopped", "type", typeName, "subscription", subscriptionID, "error", err)
		}
	}()

	return subscriptionID, msgChan, nil
}

// DeSubscribe stops the message receiver and deletes the subscription on GCP.
func (s *GenericPubSubService[M]) DeSubscribe(id uuid.UUID) error {
	s.subscriptionsMutex.Lock()
	info, ok := s.activeSubscriptions[id]
	if ok {
		// Removed from the map inside the goroutine's defer; we only cancel.
		info.cancel()
	}
	s.subscriptionsMutex.Unlock()

	if !ok {
		return fmt.Errorf("subscription ID %s not found for %s service", id, reflect.TypeOf(*new(M)).Name())
	}
	return nil
}

// Close cancels all active subscriptions for this service.
func (s *GenericPubSubService[M]) Close() {
	s.subscriptionsMutex.Lock()
	defer s.subscriptionsMutex.Unlock()

	for _, info := range s.activeSubscriptions {
		info.cancel()
	}
}

// --- billMQ implementation ---

type billMQ struct {
	genericService *GenericPubSubService[mq.BillMessage]
	action         mq.Action
}

func NewBillMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*billMQ, error) {
	topicID := fmt.Sprintf("plan-bill-%s", action.String())
	gs, err := NewGenericPubSubService[mq.BillMessage](ctx, client, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for Bill: %w", err)
	}
	return &billMQ{genericService: gs, action: action}, nil
}
func (q *billMQ) GetAction() mq.Action             { return q.action }
func (q *billMQ) Publish(msg mq.BillMessage) error { return q.genericService.Publish(msg) }
func (q *billMQ) Subscribe(planID uuid.UUID) (uuid.UUID, <-chan mq.BillMessage, error) {
	return q.genericService.Subscribe(planID)
}
func (q *billMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --- scheduleMQ implementation ---

type scheduleMQ struct {
	genericService *GenericPubSubService[mq.ScheduleMessage]
	action         mq.Action
}

func NewScheduleMessageQueue(ctx context.Context, client *pubsub.Client, action mq.Action) (*scheduleMQ, error) {
	topicID := fmt.Sprintf("plan-schedule-%s", action.String())
	gs, err := NewGenericPubSubService[mq.ScheduleMessage](ctx, client, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to create generic service for Schedule: %w", err)
	}
	return &scheduleMQ{genericService: gs, action: action}, nil
}
func (q *scheduleMQ) GetAction() mq.Action                 { return q.action }
func (q *scheduleMQ) Publish(msg mq.ScheduleMessage) error { return q.genericService.Publish(msg) }
func (q *scheduleMQ) Subscribe(planID uuid.UUID) (uuid.UUID, <-chan mq.ScheduleMessage, error) {
	return q.genericService.Subscribe(planID)
}
func (q *scheduleMQ) DeSubscribe(id uuid.UUID) error { return q.genericService.DeSubscribe(id) }

// --------- plan message queue wrapper implementation ---------

type GCPPlanMessageQueueWrapper struct {
	BillMQArray     [mq.ActionCnt]*billMQ
	ScheduleMQArray [mq.ActionCnt]*scheduleMQ
}

func (wrapper *GCPPlanMessageQueueWrapper) GetBillMessageQueue(action mq.Action) mq.BillMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.BillMQArray[action] == nil {
		return nil
	}
	return wrapper.BillMQArray[action]
}

func (wrapper *GCPPlanMessageQueueWrapper) GetScheduleMessageQueue(action mq.Action) mq.ScheduleMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.ScheduleMQArray[action] == nil {
		return nil
	}
	return wrapper.ScheduleMQArray[action]
}

// NewGCPPlanMessageQueueWrapper creates a new MQ wrapper instance using GCP
// Pub/Sub.
func NewGCPPlanMessageQueueWrapper(ctx context.Context, projectID string) (mq.PlanMessageQueueWrapper, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Pub/Sub client for project %s: %w", projectID, err)
	}

	wrapper := &GCPPlanMessageQueueWrapper{}

	for _, action := range []mq.Action{mq.ActionCreate, mq.ActionUpdate, mq.ActionDelete} {
		wrapper.BillMQArray[action], err = NewBillMessageQueue(ctx, client, action)
		if err != nil {
			return nil, err
		}
	}
	wrapper.ScheduleMQArray[mq.ActionRecompute], err = NewScheduleMessageQueue(ctx, client, mq.ActionRecompute)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}
