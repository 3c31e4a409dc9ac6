package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FlowEventRepository 物料流转日志. Append-only: there is no update or delete.
type FlowEventRepository struct {
	db *gorm.DB
}

func NewFlowEventRepository(db *gorm.DB) *FlowEventRepository {
	return &FlowEventRepository{db: db}
}

func (r *FlowEventRepository) Create(ctx context.Context, event *entity.MaterialFlowEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	return TranslateError(r.db.WithContext(ctx).Create(event).Error)
}

// FindByMaterialInput returns the history of one input, oldest first.
func (r *FlowEventRepository) FindByMaterialInput(ctx context.Context, materialInputID string) ([]entity.MaterialFlowEvent, error) {
	var items []entity.MaterialFlowEvent
	err := r.db.WithContext(ctx).
		Where("material_input_id = ?", materialInputID).
		Order("created_at ASC").
		Find(&items).Error
	return items, TranslateError(err)
}

func (r *FlowEventRepository) FindByOutput(ctx context.Context, outputMaterialID string) ([]entity.MaterialFlowEvent, error) {
	var items []entity.MaterialFlowEvent
	err := r.db.WithContext(ctx).
		Where("output_material_id = ?", outputMaterialID).
		Order("created_at ASC").
		Find(&items).Error
	return items, TranslateError(err)
}

func (r *FlowEventRepository) FindByType(ctx context.Context, eventType string) ([]entity.MaterialFlowEvent, error) {
	var items []entity.MaterialFlowEvent
	err := r.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("created_at ASC").
		Find(&items).Error
	return items, TranslateError(err)
}
