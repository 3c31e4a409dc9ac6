package entity

import (
	"time"

	"gorm.io/datatypes"
)

// MaterialFlowEvent append-only history row. Never updated or deleted.
type MaterialFlowEvent struct {
	ID               string         `json:"id" gorm:"primaryKey;size:36"`
	EventType        string         `json:"event_type" gorm:"size:50;not null;index"`
	EventDescription string         `json:"event_description" gorm:"type:text"`
	EventDetails     datatypes.JSON `json:"event_details"`
	MaterialInputID  *string        `json:"material_input_id" gorm:"size:36;index"`
	ProcessingStepID *string        `json:"processing_step_id" gorm:"size:36"`
	SampleID         *string        `json:"sample_id" gorm:"size:36"`
	ContainerID      *string        `json:"container_id" gorm:"size:36"`
	OutputMaterialID *string        `json:"output_material_id" gorm:"size:36;index"`
	DeliveryNoteID   *string        `json:"delivery_note_id" gorm:"size:36"`
	OperatorID       string         `json:"operator_id" gorm:"size:64"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (MaterialFlowEvent) TableName() string {
	return "material_flow_events"
}

// 事件类型
const (
	EventMaterialReceived   = "material_received"
	EventProcessingStarted  = "processing_started"
	EventStepCompleted      = "processing_step_completed"
	EventStepPaused         = "processing_step_paused"
	EventStepResumed        = "processing_step_resumed"
	EventStepSampleRequired = "processing_step_sample_required"
	EventProcessingFinished = "processing_finished"
	EventSampleCreated      = "sample_created"
	EventSampleAnalyzed     = "sample_results_recorded"
	EventSampleApproved     = "sample_approved"
	EventSampleRejected     = "sample_rejected"
	EventContainerStatus    = "container_status_changed"
	EventOutputCreated      = "output_created"
	EventBatchAllocated     = "batch_allocated"
	EventDeliveryCreated    = "delivery_note_created"
	EventOutputShipped      = "output_shipped"
	EventDocumentAttached   = "delivery_document_attached"
)
