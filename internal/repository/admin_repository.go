package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
)

type AdminRepository struct {
	DB *gorm.DB
}

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{DB: db}
}

func (r *AdminRepository) Create(admin *model.Admin) error {
	return r.DB.Create(admin).Error
}

func (r *AdminRepository) Save(admin *model.Admin) error {
	return r.DB.Save(admin).Error
}

func (r *AdminRepository) FindByID(id uint) (*model.Admin, error) {
	var admin model.Admin
	if err := r.DB.First(&admin, id).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepository) FindByEmail(email string) (*model.Admin, error) {
	var admin model.Admin
	if err := r.DB.Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *AdminRepository) FindByIDs(ids []uint) ([]model.Admin, error) {
	var admins []model.Admin
	if len(ids) == 0 {
		return admins, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&admins).Error
	return admins, err
}

func (r *AdminRepository) List() ([]model.Admin, error) {
	var admins []model.Admin
	err := r.DB.Order("created_at DESC").Find(&admins).Error
	return admins, err
}

func (r *AdminRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Admin{}, id).Error
}

func (r *AdminRepository) Count() (int64, error) {
	var total int64
	err := r.DB.Model(&model.Admin{}).Count(&total).Error
	return total, err
}
