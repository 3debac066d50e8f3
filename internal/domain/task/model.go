package task

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Kind classifies why a task was raised.
type Kind string

const (
	KindWaitTime       Kind = "wait_time"
	KindRoomAssignment Kind = "room_assignment"
	KindOrderFollowup  Kind = "order_followup"
	KindGeneral        Kind = "general"
)

type Priority string

const (
	PriorityUrgent  Priority = "urgent"
	PriorityHigh    Priority = "high"
	PriorityRoutine Priority = "routine"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Active reports whether the task still demands attention. Deduplication
// only considers active tasks, so a completed alert can legitimately fire
// again if the condition recurs.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusInProgress
}

// NursingTask maps to the nursing_task table. Monitor-raised tasks carry a
// ConditionKey identifying the condition that triggered them, e.g.
// "wait_time:esi2".
type NursingTask struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Kind         Kind       `db:"kind" json:"kind"`
	Priority     Priority   `db:"priority" json:"priority"`
	Status       Status     `db:"status" json:"status"`
	AssignedRole string     `db:"assigned_role" json:"assigned_role"`
	AssignedTo   *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	Description  string     `db:"description" json:"description"`
	ConditionKey *string    `db:"condition_key" json:"condition_key,omitempty"`
	DueAt        time.Time  `db:"due_at" json:"due_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (t *NursingTask) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Kind, validation.Required, validation.In(KindWaitTime, KindRoomAssignment, KindOrderFollowup, KindGeneral)),
		validation.Field(&t.Priority, validation.Required, validation.In(PriorityUrgent, PriorityHigh, PriorityRoutine)),
		validation.Field(&t.AssignedRole, validation.Required),
		validation.Field(&t.Description, validation.Required, validation.Length(1, 500)),
	)
}
