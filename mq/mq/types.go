package mq

import (
	"time"

	"github.com/google/uuid"

	"billplan/sched"
)

type Action int

const (
	ActionCreate Action = iota
	ActionUpdate
	ActionDelete
	ActionRecompute
	ActionCnt
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionRecompute:
		return "recompute"
	default:
		return "unknown"
	}
}

// Mode selects the message queue backend.
type Mode string

const (
	ModeGoChan    Mode = "go_chan"
	ModeRabbitMQ  Mode = "rabbitmq"
	ModeGCPPubSub Mode = "gcp_pub_sub"
)

// BillMessage announces a bill mutation within a plan.
type BillMessage struct {
	PlanID   uuid.UUID
	BillID   uuid.UUID
	Name     string
	Total    sched.Cents
	Due      time.Time
	Priority int
}

// GetTopic returns the plan the message belongs to.
func (m BillMessage) GetTopic() uuid.UUID {
	return m.PlanID
}

// ScheduleMessage announces that a plan's schedule was recomputed.
type ScheduleMessage struct {
	PlanID         uuid.UUID
	Days           int
	TotalScheduled sched.Cents
}

// GetTopic returns the plan the message belongs to.
func (m ScheduleMessage) GetTopic() uuid.UUID {
	return m.PlanID
}
