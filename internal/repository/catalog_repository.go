package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
)

type SubjectRepository struct {
	DB *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{DB: db}
}

func (r *SubjectRepository) Create(subject *model.Subject) error {
	return r.DB.Create(subject).Error
}

func (r *SubjectRepository) Save(subject *model.Subject) error {
	return r.DB.Save(subject).Error
}

func (r *SubjectRepository) FindByID(id uint) (*model.Subject, error) {
	var subject model.Subject
	if err := r.DB.First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

// List filters by level when it is non-empty; visibleOnly hides subjects
// admins switched off.
func (r *SubjectRepository) List(level model.StudentLevel, visibleOnly bool) ([]model.Subject, error) {
	var subjects []model.Subject
	query := r.DB.Model(&model.Subject{})
	if level != "" {
		query = query.Where("level = ?", level)
	}
	if visibleOnly {
		query = query.Where("show_subject = ?", true)
	}
	err := query.Order("subject_name ASC").Find(&subjects).Error
	return subjects, err
}

func (r *SubjectRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Subject{}, id).Error
}

type TopicRepository struct {
	DB *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

func (r *TopicRepository) Create(topic *model.Topic) error {
	return r.DB.Omit("Subject").Create(topic).Error
}

func (r *TopicRepository) Save(topic *model.Topic) error {
	return r.DB.Omit("Subject").Save(topic).Error
}

func (r *TopicRepository) FindByID(id uint) (*model.Topic, error) {
	var topic model.Topic
	if err := r.DB.Preload("Subject").First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *TopicRepository) List(page, limit int) ([]model.Topic, int64, error) {
	var topics []model.Topic
	var total int64
	if err := r.DB.Model(&model.Topic{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := r.DB.Preload("Subject").Order("created_at DESC").Offset(offset).Limit(limit).Find(&topics).Error
	return topics, total, err
}

func (r *TopicRepository) FindBySubject(subjectID uint, visibleOnly bool) ([]model.Topic, error) {
	var topics []model.Topic
	query := r.DB.Where("subject_id = ?", subjectID)
	if visibleOnly {
		query = query.Where("show_topic = ?", true)
	}
	err := query.Order("created_at ASC").Find(&topics).Error
	return topics, err
}

// RandomBySubject samples visible topics of a subject.
func (r *TopicRepository) RandomBySubject(subjectID uint, n int) ([]model.Topic, error) {
	var topics []model.Topic
	err := r.DB.Where("subject_id = ? AND show_topic = ?", subjectID, true).
		Order(randomOrder(r.DB)).
		Limit(n).
		Find(&topics).Error
	return topics, err
}

func (r *TopicRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Topic{}, id).Error
}

func (r *TopicRepository) Count() (int64, error) {
	var total int64
	err := r.DB.Model(&model.Topic{}).Count(&total).Error
	return total, err
}

// randomOrder picks the dialect's random function.
func randomOrder(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}

type BannerRepository struct {
	DB *gorm.DB
}

func NewBannerRepository(db *gorm.DB) *BannerRepository {
	return &BannerRepository{DB: db}
}

func (r *BannerRepository) Create(banner *model.HomeBanner) error {
	return r.DB.Create(banner).Error
}

func (r *BannerRepository) Save(banner *model.HomeBanner) error {
	return r.DB.Save(banner).Error
}

func (r *BannerRepository) FindByID(id uint) (*model.HomeBanner, error) {
	var banner model.HomeBanner
	if err := r.DB.First(&banner, id).Error; err != nil {
		return nil, err
	}
	return &banner, nil
}

func (r *BannerRepository) List(visibleOnly bool) ([]model.HomeBanner, error) {
	var banners []model.HomeBanner
	query := r.DB.Model(&model.HomeBanner{})
	if visibleOnly {
		query = query.Where("show_banner = ?", true)
	}
	err := query.Order("created_at DESC").Find(&banners).Error
	return banners, err
}

func (r *BannerRepository) Delete(id uint) error {
	return r.DB.Delete(&model.HomeBanner{}, id).Error
}
