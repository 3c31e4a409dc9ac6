package repository

import (
	"context"

	"github.com/bitfantasy/recytrack/internal/lifecycle/entity"
	"gorm.io/gorm"
)

// ContainerRepository 容器仓库
type ContainerRepository struct {
	db *gorm.DB
}

func NewContainerRepository(db *gorm.DB) *ContainerRepository {
	return &ContainerRepository{db: db}
}

func (r *ContainerRepository) Create(ctx context.Context, c *entity.Container) error {
	return TranslateError(r.db.WithContext(ctx).Create(c).Error)
}

func (r *ContainerRepository) FindByID(ctx context.Context, id string) (*entity.Container, error) {
	var c entity.Container
	if err := r.db.WithContext(ctx).Where("id = ? OR container_id = ?", id, id).First(&c).Error; err != nil {
		return nil, TranslateError(err)
	}
	return &c, nil
}

func (r *ContainerRepository) List(ctx context.Context, status string) ([]entity.Container, error) {
	var items []entity.Container
	query := r.db.WithContext(ctx).Model(&entity.Container{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("container_id ASC").Find(&items).Error
	return items, TranslateError(err)
}

func (r *ContainerRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res := r.db.WithContext(ctx).Model(&entity.Container{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return TranslateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
