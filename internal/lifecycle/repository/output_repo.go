package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// OutputRepository 成品仓库
type OutputRepository struct {
	db *gorm.DB
}

func NewOutputRepository(db *gorm.DB) *OutputRepository {
	return &OutputRepository{db: db}
}

func (r *OutputRepository) Create(ctx context.Context, o *entity.OutputMaterial) error {
	return TranslateError(r.db.WithContext(ctx).Create(o).Error)
}

// FindByID looks up by primary key or output code.
func (r *OutputRepository) FindByID(ctx context.Context, id string) (*entity.OutputMaterial, error) {
	var o entity.OutputMaterial
	if err := r.db.WithContext(ctx).Where("id = ? OR output_id = ?", id, id).First(&o).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &o, nil
}

// FindByIDForUpdate locks the output row. Allocations against one output serialize on this lock.
func (r *OutputRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.OutputMaterial, error) {
	var o entity.OutputMaterial
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ? OR output_id = ?", id, id).First(&o).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &o, nil
}

type OutputListParams struct {
	Status   string
	BatchID  string
	Page     int
	PageSize int
}

func (r *OutputRepository) List(ctx context.Context, params OutputListParams) ([]entity.OutputMaterial, int64, error) {
	var items []entity.OutputMaterial
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.OutputMaterial{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.BatchID != "" {
		query = query.Where("batch_id = ?", params.BatchID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	offset, limit := paginate(params.Page, params.PageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, TranslateError(err)
}

func (r *OutputRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).Model(&entity.OutputMaterial{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
