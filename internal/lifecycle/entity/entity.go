package entity

import "gorm.io/gorm"

// AutoMigrate migrates every lifecycle table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&MaterialInput{},
		&ProcessingStep{},
		&Sample{},
		&SampleResult{},
		&Container{},
		&OutputMaterial{},
		&Order{},
		&BatchAllocation{},
		&DeliveryNote{},
		&MaterialFlowEvent{},
	)
}

// CanTransition reports whether transitions allows from → to.
func CanTransition(transitions map[string][]string, from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
