package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
)

type StudentRepository struct {
	DB *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{DB: db}
}

func (r *StudentRepository) Create(student *model.Student) error {
	return r.DB.Create(student).Error
}

func (r *StudentRepository) Save(student *model.Student) error {
	return r.DB.Save(student).Error
}

func (r *StudentRepository) FindByID(id uint) (*model.Student, error) {
	var student model.Student
	if err := r.DB.First(&student, id).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) FindByEmail(email string) (*model.Student, error) {
	var student model.Student
	if err := r.DB.Where("email = ?", email).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) FindByIDs(ids []uint) ([]model.Student, error) {
	var students []model.Student
	if len(ids) == 0 {
		return students, nil
	}
	err := r.DB.Where("id IN ?", ids).Find(&students).Error
	return students, err
}

func (r *StudentRepository) List(search string, page, limit int) ([]model.Student, int64, error) {
	var students []model.Student
	var total int64

	query := r.DB.Model(&model.Student{})
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", like, like, like)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&students).Error
	return students, total, err
}

func (r *StudentRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Student{}, id).Error
}

func (r *StudentRepository) Count() (int64, error) {
	var total int64
	err := r.DB.Model(&model.Student{}).Count(&total).Error
	return total, err
}

func (r *StudentRepository) CountBySubscription(status model.SubscriptionStatus) (int64, error) {
	var total int64
	err := r.DB.Model(&model.Student{}).Where("subscription_status = ?", status).Count(&total).Error
	return total, err
}
