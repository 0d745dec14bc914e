// Package goch is the in-process message queue backend, built on Go
// channels. It is the default for dev mode and tests; every subscriber gets
// its own buffered channel and only sees messages for its plan.
package goch

import (
	"sync"

	"github.com/google/uuid"

	"billplan/mq/mq"
)

const subscriberBuffer = 16

// QueueError is the error type for channel queue failures.
type QueueError string

func (e QueueError) Error() string {
	return string(e)
}

const (
	ErrSubscriberNotFound QueueError = "subscriber not found"
)

type subscriber[M any] struct {
	planID uuid.UUID
	ch     chan M
}

// channelQueue fans messages out to plan-filtered subscribers. A subscriber
// that stops draining its buffer misses messages rather than blocking the
// publisher.
type channelQueue[M mq.TopicProvider] struct {
	action      mq.Action
	mu          sync.RWMutex
	subscribers map[uuid.UUID]subscriber[M]
}

func newChannelQueue[M mq.TopicProvider](action mq.Action) *channelQueue[M] {
	return &channelQueue[M]{
		action:      action,
		subscribers: make(map[uuid.UUID]subscriber[M]),
	}
}

func (q *channelQueue[M]) GetAction() mq.Action {
	return q.action
}

func (q *channelQueue[M]) Publish(msg M) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	topic := msg.GetTopic()
	for _, sub := range q.subscribers {
		if sub.planID != topic {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
			// Full buffer: drop for this subscriber instead of blocking.
		}
	}
	return nil
}

func (q *channelQueue[M]) Subscribe(planID uuid.UUID) (uuid.UUID, <-chan M, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := uuid.New()
	sub := subscriber[M]{planID: planID, ch: make(chan M, subscriberBuffer)}
	q.subscribers[id] = sub
	return id, sub.ch, nil
}

func (q *channelQueue[M]) DeSubscribe(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	sub, ok := q.subscribers[id]
	if !ok {
		return ErrSubscriberNotFound
	}
	close(sub.ch)
	delete(q.subscribers, id)
	return nil
}

// GoChanPlanMessageQueueWrapper implements mq.PlanMessageQueueWrapper with
// in-process channels.
type GoChanPlanMessageQueueWrapper struct {
	billQueues     [mq.ActionCnt]*channelQueue[mq.BillMessage]
	scheduleQueues [mq.ActionCnt]*channelQueue[mq.ScheduleMessage]
}

// NewGoChanPlanMessageQueueWrapper creates queues for every action a bill or
// schedule event can carry.
func NewGoChanPlanMessageQueueWrapper() mq.PlanMessageQueueWrapper {
	wrapper := GoChanPlanMessageQueueWrapper{}
	for _, action := range []mq.Action{mq.ActionCreate, mq.ActionUpdate, mq.ActionDelete} {
		wrapper.billQueues[action] = newChannelQueue[mq.BillMessage](action)
	}
	// schedule events only ever announce a recompute
	wrapper.scheduleQueues[mq.ActionRecompute] = newChannelQueue[mq.ScheduleMessage](mq.ActionRecompute)
	return &wrapper
}

func (w *GoChanPlanMessageQueueWrapper) GetBillMessageQueue(action mq.Action) mq.BillMessageQueue {
	if action < 0 || action >= mq.ActionCnt || w.billQueues[action] == nil {
		return nil
	}
	return w.billQueues[action]
}

func (w *GoChanPlanMessageQueueWrapper) GetScheduleMessageQueue(action mq.Action) mq.ScheduleMessageQueue {
	if action < 0 || action >= mq.ActionCnt || w.scheduleQueues[action] == nil {
		return nil
	}
	return w.scheduleQueues[action]
}
