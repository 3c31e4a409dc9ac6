package entity

import "time"

// Sample QA checkpoint on an input and/or a processing step.
type Sample struct {
	ID               string     `json:"id" gorm:"primaryKey;size:36"`
	SampleID         string     `json:"sample_id" gorm:"size:32;uniqueIndex;not null"`
	SamplerName      string     `json:"sampler_name" gorm:"size:100;not null"`
	MaterialInputID  *string    `json:"material_input_id" gorm:"size:36;index"`
	ProcessingStepID *string    `json:"processing_step_id" gorm:"size:36;index"`
	Status           string     `json:"status" gorm:"size:20;not null;default:pending"`
	AnalyzedAt       *time.Time `json:"analyzed_at"`
	ApprovedAt       *time.Time `json:"approved_at"`
	RejectedAt       *time.Time `json:"rejected_at"`
	CreatedBy        string     `json:"created_by" gorm:"size:64"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Results []SampleResult `json:"results,omitempty" gorm:"foreignKey:SampleID;references:ID"`
}

func (Sample) TableName() string {
	return "samples"
}

// SampleResult one measured lab parameter.
type SampleResult struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	SampleID       string    `json:"sample_id" gorm:"size:36;not null;index"`
	ParameterName  string    `json:"parameter_name" gorm:"size:100;not null"`
	ParameterValue string    `json:"parameter_value" gorm:"size:100;not null"`
	Unit           string    `json:"unit" gorm:"size:20"`
	CreatedAt      time.Time `json:"created_at"`
}

func (SampleResult) TableName() string {
	return "sample_results"
}

const (
	SampleStatusPending    = "pending"
	SampleStatusInAnalysis = "in_analysis"
	SampleStatusApproved   = "approved"
	SampleStatusRejected   = "rejected"
)

// ValidSampleTransitions 合法的样品状态流转
var ValidSampleTransitions = map[string][]string{
	SampleStatusPending:    {SampleStatusInAnalysis, SampleStatusApproved, SampleStatusRejected},
	SampleStatusInAnalysis: {SampleStatusApproved, SampleStatusRejected},
}
