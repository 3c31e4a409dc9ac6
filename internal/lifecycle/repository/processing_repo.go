package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// ProcessingStepRepository 工序仓库
type ProcessingStepRepository struct {
	db *gorm.DB
}

func NewProcessingStepRepository(db *gorm.DB) *ProcessingStepRepository {
	return &ProcessingStepRepository{db: db}
}

// CreateBatch inserts all steps of one run.
func (r *ProcessingStepRepository) CreateBatch(ctx context.Context, steps []entity.ProcessingStep) error {
	return TranslateError(r.db.WithContext(ctx).Create(&steps).Error)
}

func (r *ProcessingStepRepository) FindByID(ctx context.Context, id string) (*entity.ProcessingStep, error) {
	var step entity.ProcessingStep
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&step).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &step, nil
}

func (r *ProcessingStepRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.ProcessingStep, error) {
	var step entity.ProcessingStep
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&step).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &step, nil
}

// FindByProcessingID returns the steps of one run in step order.
func (r *ProcessingStepRepository) FindByProcessingID(ctx context.Context, processingID string) ([]entity.ProcessingStep, error) {
	var steps []entity.ProcessingStep
	err := r.db.WithContext(ctx).
		Where("processing_id = ?", processingID).
		Order("step_order ASC").
		Find(&steps).Error
	return steps, TranslateError(err)
}

func (r *ProcessingStepRepository) FindByMaterialInput(ctx context.Context, materialInputID string) ([]entity.ProcessingStep, error) {
	var steps []entity.ProcessingStep
	err := r.db.WithContext(ctx).
		Where("material_input_id = ?", materialInputID).
		Order("created_at ASC, step_order ASC").
		Find(&steps).Error
	return steps, TranslateError(err)
}

// CountActive counts steps of an input that still belong to an active chain.
func (r *ProcessingStepRepository) CountActive(ctx context.Context, materialInputID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.ProcessingStep{}).
		Where("material_input_id = ? AND status IN ?", materialInputID, entity.ActiveStepStatuses).
		Count(&count).Error
	return count, TranslateError(err)
}

func (r *ProcessingStepRepository) Update(ctx context.Context, step *entity.ProcessingStep) error {
	return TranslateError(r.db.WithContext(ctx).Save(step).Error)
}
