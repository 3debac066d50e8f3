package event

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies an activity-feed entry.
type Category string

const (
	CategoryArrival        Category = "arrival"
	CategoryLocationChange Category = "location_change"
	CategoryOrderStatus    Category = "order_status"
	CategoryStepCompleted  Category = "step_completed"
	CategoryPathwayDone    Category = "pathway_completed"
	CategoryProcedure      Category = "procedure"
	CategoryEndpoint       Category = "endpoint"
	CategoryRoomAssigned   Category = "room_assigned"
	CategoryRoomReleased   Category = "room_released"
	CategoryTaskCreated    Category = "task_created"
	CategoryDischarge      Category = "discharge"
)

// Event maps to the event table: an append-only audit row consumed by the
// dashboard activity feed.
type Event struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Category    Category   `db:"category" json:"category"`
	Description string     `db:"description" json:"description"`
	Actor       string     `db:"actor" json:"actor"`
	TimerStatus *string    `db:"timer_status" json:"timer_status,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
