package repository

import (
	"learning_platform_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) Find(studentID, topicID uint) (*model.StudentTopicProgress, error) {
	var progress model.StudentTopicProgress
	err := r.DB.Where("student_id = ? AND topic_id = ?", studentID, topicID).First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) Create(progress *model.StudentTopicProgress) error {
	return r.DB.Create(progress).Error
}

// Save writes the whole row, lessons and daily log included, in one statement.
func (r *ProgressRepository) Save(progress *model.StudentTopicProgress) error {
	return r.DB.Omit("Topic").Save(progress).Error
}

// ListByStudent filters by status when it is non-empty.
func (r *ProgressRepository) ListByStudent(studentID uint, status model.ProgressStatus) ([]model.StudentTopicProgress, error) {
	var list []model.StudentTopicProgress
	query := r.DB.Preload("Topic").Where("student_id = ?", studentID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("last_accessed DESC").Find(&list).Error
	return list, err
}

// DeleteStale removes unfinished records untouched since cutoff that never met
// the minimum study time.
func (r *ProgressRepository) DeleteStale(cutoff time.Time) (int64, error) {
	res := r.DB.
		Where("last_accessed < ? AND minimum_time_requirement_met = ? AND status <> ?",
			cutoff, false, model.ProgressCompleted).
		Delete(&model.StudentTopicProgress{})
	return res.RowsAffected, res.Error
}

func (r *ProgressRepository) Delete(studentID, topicID uint) (int64, error) {
	res := r.DB.Where("student_id = ? AND topic_id = ?", studentID, topicID).Delete(&model.StudentTopicProgress{})
	return res.RowsAffected, res.Error
}

func (r *ProgressRepository) CountByStatus(status model.ProgressStatus) (int64, error) {
	var total int64
	err := r.DB.Model(&model.StudentTopicProgress{}).Where("status = ?", status).Count(&total).Error
	return total, err
}
