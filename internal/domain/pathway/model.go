package pathway

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/edflow/edflow/internal/domain/timer"
)

// Type names the kind of pathway attached to a visit. Triage pathways are
// step checklists; the other two carry orders, procedures and endpoints.
type Type string

const (
	TypeTriage         Type = "triage"
	TypeEmergencyRoom  Type = "emergency_room"
	TypeResultsPending Type = "results_pending"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// CarePathway maps to the care_pathway table. A patient has at most one
// active (non-completed) pathway per type; enforced on create, not by a
// database constraint.
type CarePathway struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	Type        Type       `db:"type" json:"type"`
	Status      Status     `db:"status" json:"status"`
	Name        string     `db:"name" json:"name"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	// Loaded children, populated by the service for detail views.
	Steps      []*Step             `db:"-" json:"steps,omitempty"`
	Orders     []*Order            `db:"-" json:"orders,omitempty"`
	Procedures []*Procedure        `db:"-" json:"procedures,omitempty"`
	Endpoints  []*ClinicalEndpoint `db:"-" json:"endpoints,omitempty"`
}

func (p *CarePathway) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PatientID, validation.Required),
		validation.Field(&p.Type, validation.Required, validation.In(TypeTriage, TypeEmergencyRoom, TypeResultsPending)),
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
	)
}

// Step maps to the care_pathway_step table (triage pathways only).
type Step struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PathwayID   uuid.UUID  `db:"pathway_id" json:"pathway_id"`
	Name        string     `db:"name" json:"name"`
	Position    int        `db:"position" json:"position"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *string    `db:"completed_by" json:"completed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Procedure maps to the care_pathway_procedure table.
type Procedure struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PathwayID   uuid.UUID  `db:"pathway_id" json:"pathway_id"`
	Name        string     `db:"name" json:"name"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *string    `db:"completed_by" json:"completed_by,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// ClinicalEndpoint maps to the care_pathway_endpoint table: a discharge or
// disposition criterion the visit is working toward.
type ClinicalEndpoint struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PathwayID  uuid.UUID  `db:"pathway_id" json:"pathway_id"`
	Name       string     `db:"name" json:"name"`
	Achieved   bool       `db:"achieved" json:"achieved"`
	AchievedAt *time.Time `db:"achieved_at" json:"achieved_at,omitempty"`
	AchievedBy *string    `db:"achieved_by" json:"achieved_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// OrderType determines which status chain an order walks through.
type OrderType string

const (
	OrderLab        OrderType = "lab"
	OrderMedication OrderType = "medication"
	OrderImaging    OrderType = "imaging"
)

type OrderStatus string

const (
	OrderOrdered       OrderStatus = "ordered"
	OrderCollected     OrderStatus = "collected"
	OrderInLab         OrderStatus = "in_lab"
	OrderResulted      OrderStatus = "resulted"
	OrderAdministered  OrderStatus = "administered"
	OrderExamStarted   OrderStatus = "exam_started"
	OrderExamCompleted OrderStatus = "exam_completed"
)

// orderChains lists each order type's linear status progression. There is
// no branching and no going back.
var orderChains = map[OrderType][]OrderStatus{
	OrderLab:        {OrderOrdered, OrderCollected, OrderInLab, OrderResulted},
	OrderMedication: {OrderOrdered, OrderAdministered},
	OrderImaging:    {OrderOrdered, OrderExamStarted, OrderExamCompleted, OrderResulted},
}

// NextStatus returns the status after current for the given order type,
// and false when current is terminal or unknown.
func NextStatus(t OrderType, current OrderStatus) (OrderStatus, bool) {
	chain, ok := orderChains[t]
	if !ok {
		return "", false
	}
	for i, st := range chain {
		if st == current {
			if i+1 >= len(chain) {
				return "", false
			}
			return chain[i+1], true
		}
	}
	return "", false
}

// TerminalStatus reports whether the status ends the chain for the type.
func TerminalStatus(t OrderType, st OrderStatus) bool {
	chain, ok := orderChains[t]
	if !ok {
		return false
	}
	return len(chain) > 0 && chain[len(chain)-1] == st
}

// Order maps to the care_pathway_order table.
type Order struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	PathwayID       uuid.UUID    `db:"pathway_id" json:"pathway_id"`
	Type            OrderType    `db:"type" json:"type"`
	Name            string       `db:"name" json:"name"`
	Status          OrderStatus  `db:"status" json:"status"`
	TimerStatus     timer.Status `db:"timer_status" json:"timer_status"`
	OrderedAt       time.Time    `db:"ordered_at" json:"ordered_at"`
	CollectedAt     *time.Time   `db:"collected_at" json:"collected_at,omitempty"`
	InLabAt         *time.Time   `db:"in_lab_at" json:"in_lab_at,omitempty"`
	AdministeredAt  *time.Time   `db:"administered_at" json:"administered_at,omitempty"`
	ExamStartedAt   *time.Time   `db:"exam_started_at" json:"exam_started_at,omitempty"`
	ExamCompletedAt *time.Time   `db:"exam_completed_at" json:"exam_completed_at,omitempty"`
	ResultedAt      *time.Time   `db:"resulted_at" json:"resulted_at,omitempty"`
	StatusUpdatedAt time.Time    `db:"status_updated_at" json:"status_updated_at"`
	StatusUpdatedBy *string      `db:"status_updated_by" json:"status_updated_by,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

func (o *Order) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.PathwayID, validation.Required),
		validation.Field(&o.Type, validation.Required, validation.In(OrderLab, OrderMedication, OrderImaging)),
		validation.Field(&o.Name, validation.Required, validation.Length(1, 200)),
	)
}

// Terminal reports whether the order has nowhere left to go.
func (o *Order) Terminal() bool {
	return TerminalStatus(o.Type, o.Status)
}

// Complete reports whether the order counts as done for progress purposes.
func (o *Order) Complete() bool {
	return o.Terminal()
}

// Advance moves the order to its next status, stamping the stage timestamp
// and the audit fields. It returns false without mutating anything when
// the order is already terminal.
func (o *Order) Advance(actor string, now time.Time) bool {
	next, ok := NextStatus(o.Type, o.Status)
	if !ok {
		return false
	}
	o.Status = next
	switch next {
	case OrderCollected:
		o.CollectedAt = &now
	case OrderInLab:
		o.InLabAt = &now
	case OrderAdministered:
		o.AdministeredAt = &now
	case OrderExamStarted:
		o.ExamStartedAt = &now
	case OrderExamCompleted:
		o.ExamCompletedAt = &now
	case OrderResulted:
		o.ResultedAt = &now
	}
	o.StatusUpdatedAt = now
	o.StatusUpdatedBy = &actor
	return true
}

// StageElapsedMinutes is the whole minutes spent in the current status.
func (o *Order) StageElapsedMinutes(now time.Time) int {
	since := o.StatusUpdatedAt
	if since.IsZero() {
		since = o.OrderedAt
	}
	if since.IsZero() {
		return 0
	}
	mins := int(now.Sub(since).Minutes())
	if mins < 0 {
		return 0
	}
	return mins
}
