package entity

import "time"

// ProcessingStep one stage of a processing run. Steps of one run share ProcessingID.
type ProcessingStep struct {
	ID              string     `json:"id" gorm:"primaryKey;size:36"`
	ProcessingID    string     `json:"processing_id" gorm:"size:32;not null;index"`
	MaterialInputID string     `json:"material_input_id" gorm:"size:36;not null;index"`
	StepType        string     `json:"step_type" gorm:"size:50;not null"`
	StepOrder       int        `json:"step_order" gorm:"not null"`
	Status          string     `json:"status" gorm:"size:20;not null;default:pending"`
	StartedAt       *time.Time `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedBy       string     `json:"created_by" gorm:"size:64"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (ProcessingStep) TableName() string {
	return "processing_steps"
}

const (
	StepStatusPending        = "pending"
	StepStatusRunning        = "running"
	StepStatusPaused         = "paused"
	StepStatusSampleRequired = "sample_required"
	StepStatusCompleted      = "completed"
)

// ActiveStepStatuses a chain with any step in one of these is still active.
var ActiveStepStatuses = []string{
	StepStatusRunning,
	StepStatusPaused,
	StepStatusPending,
	StepStatusSampleRequired,
}

// ValidStepTransitions 合法的工序状态流转
var ValidStepTransitions = map[string][]string{
	StepStatusPending:        {StepStatusRunning},
	StepStatusRunning:        {StepStatusPaused, StepStatusSampleRequired, StepStatusCompleted},
	StepStatusPaused:         {StepStatusRunning},
	StepStatusSampleRequired: {StepStatusRunning, StepStatusCompleted},
}
