package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// MaterialInputRepository 原料仓库
type MaterialInputRepository struct {
	db *gorm.DB
}

func NewMaterialInputRepository(db *gorm.DB) *MaterialInputRepository {
	return &MaterialInputRepository{db: db}
}

func (r *MaterialInputRepository) Create(ctx context.Context, input *entity.MaterialInput) error {
	return TranslateError(r.db.WithContext(ctx).Create(input).Error)
}

// FindByID looks up by primary key or by human-readable input code.
func (r *MaterialInputRepository) FindByID(ctx context.Context, id string) (*entity.MaterialInput, error) {
	var input entity.MaterialInput
	err := r.db.WithContext(ctx).Where("id = ? OR input_id = ?", id, id).First(&input).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &input, nil
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (r *MaterialInputRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.MaterialInput, error) {
	var input entity.MaterialInput
	err := forUpdate(r.db.WithContext(ctx)).Where("id = ? OR input_id = ?", id, id).First(&input).Error
	if err != nil {
		return nil, TranslateError(err)
	}
	return &input, nil
}

func (r *MaterialInputRepository) List(ctx context.Context, status string, page, pageSize int) ([]entity.MaterialInput, int64, error) {
	var items []entity.MaterialInput
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.MaterialInput{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, TranslateError(err)
}

func (r *MaterialInputRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).Model(&entity.MaterialInput{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
