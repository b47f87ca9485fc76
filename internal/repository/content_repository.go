package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TopicContentRepository struct {
	DB *gorm.DB
}

func NewTopicContentRepository(db *gorm.DB) *TopicContentRepository {
	return &TopicContentRepository{DB: db}
}

func (r *TopicContentRepository) Create(content *model.TopicContent) error {
	return r.DB.Omit("Topic").Create(content).Error
}

func (r *TopicContentRepository) Save(content *model.TopicContent) error {
	return r.DB.Omit("Topic").Save(content).Error
}

func (r *TopicContentRepository) FindByID(id uint) (*model.TopicContent, error) {
	var content model.TopicContent
	if err := r.DB.Preload("Topic").First(&content, id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *TopicContentRepository) FindByTopic(topicID uint) ([]model.TopicContent, error) {
	var contents []model.TopicContent
	err := r.DB.Where("topic_id = ?", topicID).Order("created_at ASC").Find(&contents).Error
	return contents, err
}

func (r *TopicContentRepository) List(page, limit int) ([]model.TopicContent, int64, error) {
	var contents []model.TopicContent
	var total int64
	if err := r.DB.Model(&model.TopicContent{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := r.DB.Order("created_at DESC").Offset(offset).Limit(limit).Find(&contents).Error
	return contents, total, err
}

func (r *TopicContentRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("topic_content_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("topic_content_id = ?", id).Delete(&model.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.TopicContent{}, id).Error
	})
}

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) Create(comment *model.Comment) error {
	return r.DB.Create(comment).Error
}

func (r *CommentRepository) FindByID(id uint) (*model.Comment, error) {
	var comment model.Comment
	if err := r.DB.First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// FindByContent lists comments of one lifecycle state, newest first.
func (r *CommentRepository) FindByContent(contentID uint, state model.Lifecycle) ([]model.Comment, error) {
	var comments []model.Comment
	err := r.DB.Preload("Student").
		Where("topic_content_id = ? AND lifecycle = ?", contentID, state).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

func (r *CommentRepository) UpdateBody(id uint, body string) error {
	return r.DB.Model(&model.Comment{}).Where("id = ?", id).Update("body", body).Error
}

func (r *CommentRepository) SetLifecycle(id uint, state model.Lifecycle) error {
	return r.DB.Model(&model.Comment{}).Where("id = ?", id).Update("lifecycle", state).Error
}

func (r *CommentRepository) Purge(id uint) error {
	return r.DB.Delete(&model.Comment{}, id).Error
}

type ReactionRepository struct {
	DB *gorm.DB
}

func NewReactionRepository(db *gorm.DB) *ReactionRepository {
	return &ReactionRepository{DB: db}
}

// Upsert stores or replaces the student's reaction to a content page.
func (r *ReactionRepository) Upsert(reaction *model.Reaction) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "topic_content_id"}, {Name: "student_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "updated_at"}),
	}).Create(reaction).Error
}

func (r *ReactionRepository) Delete(contentID, studentID uint) (int64, error) {
	res := r.DB.Where("topic_content_id = ? AND student_id = ?", contentID, studentID).Delete(&model.Reaction{})
	return res.RowsAffected, res.Error
}

type ReactionCount struct {
	Type  model.ReactionType `json:"type"`
	Count int64              `json:"count"`
}

func (r *ReactionRepository) CountByContent(contentID uint) ([]ReactionCount, error) {
	var counts []ReactionCount
	err := r.DB.Model(&model.Reaction{}).
		Select("type, COUNT(*) AS count").
		Where("topic_content_id = ?", contentID).
		Group("type").
		Scan(&counts).Error
	return counts, err
}
