package repository

import (
	"learning_platform_backend/internal/model"

	"gorm.io/gorm"
)

type DashboardRepository struct {
	DB *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{DB: db}
}

// CatalogCounts are the row counts shown on the admin dashboard.
type CatalogCounts struct {
	Students            int64 `json:"students"`
	ActiveSubscriptions int64 `json:"activeSubscriptions"`
	Admins              int64 `json:"admins"`
	Subjects            int64 `json:"subjects"`
	Topics              int64 `json:"topics"`
	TopicContents       int64 `json:"topicContents"`
	Communities         int64 `json:"communities"`
	Exams               int64 `json:"exams"`
	Books               int64 `json:"books"`
}

func (r *DashboardRepository) Counts() (*CatalogCounts, error) {
	var c CatalogCounts
	counts := []struct {
		model interface{}
		dest  *int64
	}{
		{&model.Student{}, &c.Students},
		{&model.Admin{}, &c.Admins},
		{&model.Subject{}, &c.Subjects},
		{&model.Topic{}, &c.Topics},
		{&model.TopicContent{}, &c.TopicContents},
		{&model.Community{}, &c.Communities},
		{&model.Exam{}, &c.Exams},
		{&model.LibraryBook{}, &c.Books},
	}
	for _, q := range counts {
		if err := r.DB.Model(q.model).Count(q.dest).Error; err != nil {
			return nil, err
		}
	}
	if err := r.DB.Model(&model.Student{}).
		Where("subscription_status = ?", model.SubscriptionActive).
		Count(&c.ActiveSubscriptions).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// TopicCompletion counts completed progress records per topic, best first.
type TopicCompletion struct {
	TopicID   uint   `json:"topicId"`
	Title     string `json:"title"`
	Completed int64  `json:"completed"`
}

func (r *DashboardRepository) TopCompletedTopics(limit int) ([]TopicCompletion, error) {
	var rows []TopicCompletion
	err := r.DB.Model(&model.StudentTopicProgress{}).
		Select("student_topic_progress.topic_id AS topic_id, topics.title AS title, COUNT(*) AS completed").
		Joins("JOIN topics ON topics.id = student_topic_progress.topic_id").
		Where("student_topic_progress.status = ?", model.ProgressCompleted).
		Group("student_topic_progress.topic_id, topics.title").
		Order("completed DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
