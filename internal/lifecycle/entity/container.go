package entity

import "time"

// Container physical container (big bag, octabin, ...)
type Container struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	ContainerID string    `json:"container_id" gorm:"size:32;uniqueIndex;not null"`
	Type        string    `json:"type" gorm:"size:50;not null"`
	Location    string    `json:"location" gorm:"size:100"`
	Status      string    `json:"status" gorm:"size:20;not null;default:empty"`
	CreatedBy   string    `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Container) TableName() string {
	return "containers"
}

// Canonical container statuses. in_use marks a container holding registered output material.
const (
	ContainerStatusEmpty        = "empty"
	ContainerStatusFilling      = "filling"
	ContainerStatusFull         = "full"
	ContainerStatusInUse        = "in_use"
	ContainerStatusInProcessing = "in_processing"
	ContainerStatusProcessed    = "processed"
)

// ValidContainerTransitions 合法的容器状态流转
var ValidContainerTransitions = map[string][]string{
	ContainerStatusEmpty:        {ContainerStatusFilling, ContainerStatusFull, ContainerStatusInUse},
	ContainerStatusFilling:      {ContainerStatusFull, ContainerStatusEmpty, ContainerStatusInUse},
	ContainerStatusFull:         {ContainerStatusInProcessing, ContainerStatusInUse, ContainerStatusEmpty},
	ContainerStatusInUse:        {ContainerStatusEmpty, ContainerStatusFull},
	ContainerStatusInProcessing: {ContainerStatusProcessed},
	ContainerStatusProcessed:    {ContainerStatusEmpty},
}

// AllocationView projects the status onto the two-state empty/in_use view used for allocation.
func (c Container) AllocationView() string {
	if c.Status == ContainerStatusEmpty {
		return ContainerStatusEmpty
	}
	return ContainerStatusInUse
}
