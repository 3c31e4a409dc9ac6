package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// SampleRepository 样品仓库
type SampleRepository struct {
	db *gorm.DB
}

func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

func (r *SampleRepository) Create(ctx context.Context, sample *entity.Sample) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Results").Create(sample).Error)
}

// FindByID looks up by primary key or sample code, results preloaded.
func (r *SampleRepository) FindByID(ctx context.Context, id string) (*entity.Sample, error) {
	var sample entity.Sample
	err := r.db.WithContext(ctx).
		Preload("Results").
		Where("id = ? OR sample_id = ?", id, id).
		First(&sample).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &sample, nil
}

func (r *SampleRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Sample, error) {
	var sample entity.Sample
	err := forUpdate(r.db.WithContext(ctx)).Where("id = ? OR sample_id = ?", id, id).First(&sample).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &sample, nil
}

func (r *SampleRepository) Update(ctx context.Context, sample *entity.Sample) error {
	return TranslateError(r.db.WithContext(ctx).Omit("Results").Save(sample).Error)
}

func (r *SampleRepository) CreateResults(ctx context.Context, results []entity.SampleResult) error {
	return TranslateError(r.db.WithContext(ctx).Create(&results).Error)
}

func (r *SampleRepository) FindByMaterialInput(ctx context.Context, materialInputID string) ([]entity.Sample, error) {
	var samples []entity.Sample
	err := r.db.WithContext(ctx).
		Preload("Results").
		Where("material_input_id = ?", materialInputID).
		Order("created_at DESC").
		Find(&samples).Error
	return samples, TranslateError(err)
}
