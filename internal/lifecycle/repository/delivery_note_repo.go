package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// DeliveryNoteRepository 送货单仓库
type DeliveryNoteRepository struct {
	db *gorm.DB
}

func NewDeliveryNoteRepository(db *gorm.DB) *DeliveryNoteRepository {
	return &DeliveryNoteRepository{db: db}
}

func (r *DeliveryNoteRepository) Create(ctx context.Context, note *entity.DeliveryNote) error {
	return TranslateError(r.db.WithContext(ctx).Create(note).Error)
}

func (r *DeliveryNoteRepository) FindByID(ctx context.Context, id string) (*entity.DeliveryNote, error) {
	var note entity.DeliveryNote
	if err := r.db.WithContext(ctx).Where("id = ? OR note_id = ?", id, id).First(&note).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &note, nil
}

func (r *DeliveryNoteRepository) List(ctx context.Context, noteType string, page, pageSize int) ([]entity.DeliveryNote, int64, error) {
	var items []entity.DeliveryNote
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.DeliveryNote{})
	if noteType != "" {
		query = query.Where("type = ?", noteType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, TranslateError(err)
	}

	offset, limit := paginate(page, pageSize)
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, total, TranslateError(err)
}

func (r *DeliveryNoteRepository) SetDocumentPath(ctx context.Context, id, path string) error {
	res := r.db.WithContext(ctx).Model(&entity.DeliveryNote{}).Where("id = ?", id).Update("document_path", path)
	if res.Error != nil {
		return TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
