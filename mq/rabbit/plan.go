package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"billplan/mq/mq"
)

const (
	// All plan-related events flow through this exchange.
	exchangeName = "plan_events_exchange"
)

const (
	billCreateRoutingKey        = "bill.create"
	billUpdateRoutingKey        = "bill.update"
	billDeleteRoutingKey        = "bill.delete"
	scheduleRecomputeRoutingKey = "schedule.recompute"
)

func getRoutingKey(action mq.Action, msgType string) string {
	switch msgType {
	case "bill":
		switch action {
		case mq.ActionCreate:
			return billCreateRoutingKey
		case mq.ActionUpdate:
			return billUpdateRoutingKey
		case mq.ActionDelete:
			return billDeleteRoutingKey
		}
	case "schedule":
		if action == mq.ActionRecompute {
			return scheduleRecomputeRoutingKey
		}
	}
	return ""
}

type consumer[M mq.TopicProvider] struct {
	planID uuid.UUID
	ch     chan M
}

// rabbitQueue is the shared implementation behind both message queue kinds.
// Deliveries are JSON bodies on a per-action queue; each subscriber runs its
// own broker consumer and drops messages for other plans.
type rabbitQueue[M mq.TopicProvider] struct {
	action     mq.Action
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	queueName  string
	routingKey string
	mu         sync.RWMutex
	consumers  map[uuid.UUID]consumer[M]
}

func newRabbitQueue[M mq.TopicProvider](action mq.Action, conn *amqp091.Connection, msgType string) (*rabbitQueue[M], error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	queueName := fmt.Sprintf("plan_%s_%d_queue", msgType, action)
	routingKey := getRoutingKey(action, msgType)
	if routingKey == "" {
		ch.Close()
		return nil, fmt.Errorf("no routing key for %s action %s", msgType, action)
	}

	if err := DeclareQueueAndExchange(ch, queueName, exchangeName, routingKey); err != nil {
		ch.Close()
		return nil, err
	}

	return &rabbitQueue[M]{
		action:     action,
		conn:       conn,
		channel:    ch,
		queueName:  queueName,
		routingKey: routingKey,
		consumers:  make(map[uuid.UUID]consumer[M]),
	}, nil
}

func (q *rabbitQueue[M]) GetAction() mq.Action {
	return q.action
}

func (q *rabbitQueue[M]) Publish(msg M) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = q.channel.PublishWithContext(ctx,
		exchangeName, // exchange
		q.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (q *rabbitQueue[M]) Subscribe(planID uuid.UUID) (uuid.UUID, <-chan M, error) {
	msgs, err := q.channel.Consume(
		q.queueName, // queue
		"",          // consumer
		true,        // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("failed to register a consumer: %w", err)
	}

	subscriberID := uuid.New()
	outputChan := make(chan M)

	q.mu.Lock()
	q.consumers[subscriberID] = consumer[M]{planID: planID, ch: outputChan}
	q.mu.Unlock()

	go func() {
		defer func() {
			q.mu.Lock()
			if c, ok := q.consumers[subscriberID]; ok {
				close(c.ch)
				delete(q.consumers, subscriberID)
			}
			q.mu.Unlock()
		}()

		for d := range msgs {
			var msg M
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				slog.Warn("dropping undecodable message", "queue", q.queueName, "error", err)
				continue
			}
			if msg.GetTopic() != planID {
				continue
			}

			q.mu.RLock()
			c, ok := q.consumers[subscriberID]
			q.mu.RUnlock()
			if !ok {
				// Unsubscribed while the message was in flight.
				return
			}
			select {
			case c.ch <- msg:
			case <-time.After(1 * time.Second):
				slog.Warn("slow subscriber, skipping message", "queue", q.queueName, "subscriber", subscriberID)
			}
		}
	}()

	return subscriberID, outputChan, nil
}

func (q *rabbitQueue[M]) DeSubscribe(subscriberID uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if c, ok := q.consumers[subscriberID]; ok {
		delete(q.consumers, subscriberID)
		close(c.ch)
		return nil
	}
	return fmt.Errorf("consumer with ID %s not found for queue %s", subscriberID, q.queueName)
}

// rabbitPlanMessageQueueWrapper implements mq.PlanMessageQueueWrapper on a
// shared RabbitMQ connection.
type rabbitPlanMessageQueueWrapper struct {
	billMQArray     [mq.ActionCnt]*rabbitQueue[mq.BillMessage]
	scheduleMQArray [mq.ActionCnt]*rabbitQueue[mq.ScheduleMessage]
	conn            *amqp091.Connection
}

// NewRabbitPlanMessageQueueWrapper declares one queue per event kind and
// returns the wrapper. The connection is closed by Close.
func NewRabbitPlanMessageQueueWrapper(conn *amqp091.Connection) (mq.PlanMessageQueueWrapper, error) {
	wrapper := &rabbitPlanMessageQueueWrapper{conn: conn}

	var err error
	for _, action := range []mq.Action{mq.ActionCreate, mq.ActionUpdate, mq.ActionDelete} {
		wrapper.billMQArray[action], err = newRabbitQueue[mq.BillMessage](action, conn, "bill")
		if err != nil {
			return nil, fmt.Errorf("failed to create bill %s mq: %w", action, err)
		}
	}
	wrapper.scheduleMQArray[mq.ActionRecompute], err = newRabbitQueue[mq.ScheduleMessage](mq.ActionRecompute, conn, "schedule")
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule recompute mq: %w", err)
	}

	return wrapper, nil
}

func (wrapper *rabbitPlanMessageQueueWrapper) GetBillMessageQueue(action mq.Action) mq.BillMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.billMQArray[action] == nil {
		return nil
	}
	return wrapper.billMQArray[action]
}

func (wrapper *rabbitPlanMessageQueueWrapper) GetScheduleMessageQueue(action mq.Action) mq.ScheduleMessageQueue {
	if action < 0 || action >= mq.ActionCnt || wrapper.scheduleMQArray[action] == nil {
		return nil
	}
	return wrapper.scheduleMQArray[action]
}

// Close closes all channels and the RabbitMQ connection.
func (wrapper *rabbitPlanMessageQueueWrapper) Close() {
	for _, q := range wrapper.billMQArray {
		if q != nil && q.channel != nil {
			q.channel.Close()
		}
	}
	for _, q := range wrapper.scheduleMQArray {
		if q != nil && q.channel != nil {
			q.channel.Close()
		}
	}
	if wrapper.conn != nil {
		wrapper.conn.Close()
	}
}
