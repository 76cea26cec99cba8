package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yuvalk87/mofet-forms-app/internal/model"
)

type DynamicListRepository struct {
	db *gorm.DB
}

func NewDynamicListRepository(db *gorm.DB) *DynamicListRepository {
	return &DynamicListRepository{db: db}
}

func (r *DynamicListRepository) FindAll() ([]model.DynamicList, error) {
	var lists []model.DynamicList
	if err := r.db.Order("name ASC").Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *DynamicListRepository) FindByName(name string) (*model.DynamicList, error) {
	var list model.DynamicList
	if err := r.db.Where("name = ?", name).First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// Upsert 按名称创建或覆盖列表内容
func (r *DynamicListRepository) Upsert(list *model.DynamicList) error {
	var existing model.DynamicList
	err := r.db.Where("name = ?", list.Name).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.Create(list).Error
		}
		return err
	}
	existing.Description = list.Description
	existing.Items = list.Items
	existing.UpdatedBy = list.UpdatedBy
	if err := r.db.Save(&existing).Error; err != nil {
		return err
	}
	*list = existing
	return nil
}

func (r *DynamicListRepository) Delete(name string) error {
	return r.db.Where("name = ?", name).Delete(&model.DynamicList{}).Error
}
