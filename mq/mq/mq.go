package mq

import "github.com/google/uuid"

// TopicProvider is implemented by every message that can route by plan id.
type TopicProvider interface {
	GetTopic() uuid.UUID
}

// PlanMessageQueueWrapper hands out the per-action queues for a backend.
type PlanMessageQueueWrapper interface {
	GetBillMessageQueue(action Action) BillMessageQueue
	GetScheduleMessageQueue(action Action) ScheduleMessageQueue
}

type BillMessageQueue interface {
	GetAction() Action
	Publish(msg BillMessage) error
	Subscribe(planID uuid.UUID) (uuid.UUID, <-chan BillMessage, error)
	DeSubscribe(id uuid.UUID) error
}

type ScheduleMessageQueue interface {
	GetAction() Action
	Publish(msg ScheduleMessage) error
	Subscribe(planID uuid.UUID) (uuid.UUID, <-chan ScheduleMessage, error)
	DeSubscribe(id uuid.UUID) error
}
