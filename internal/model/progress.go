package model

import (
	"time"

	"gorm.io/datatypes"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// MinimumDistinctDays is how many calendar days a topic must be studied on
// before it can be marked complete.
const MinimumDistinctDays = 5

type LessonProgress struct {
	LessonID   string  `json:"lessonid"`
	Title      string  `json:"title"`
	TotalGot   float64 `json:"totalGot"`
	Percentage float64 `json:"percentage"`
	Completed  bool    `json:"completed"`
}

type DailyLog struct {
	Date      string `json:"date"` // util.DateFormat, local calendar day
	TimeSpent int64  `json:"timeSpent"`
}

// swagger:model StudentTopicProgress
type StudentTopicProgress struct {
	BaseModel
	StudentID                 uint                                `gorm:"uniqueIndex:idx_progress_student_topic;not null" json:"studentId"`
	TopicID                   uint                                `gorm:"uniqueIndex:idx_progress_student_topic;not null" json:"topicId"`
	Topic                     *Topic                              `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	CurrentLessonIndex        int                                 `gorm:"default:0" json:"currentLessonIndex"`
	CurrentSubheadingIndex    int                                 `gorm:"default:0" json:"currentSubheadingIndex"`
	CurrentLessonID           string                              `gorm:"size:64" json:"currentLessonId,omitempty"`
	Lessons                   datatypes.JSONSlice[LessonProgress] `json:"lessons"`
	OverallTotalGot           float64                             `gorm:"default:0" json:"overallTotalGot"`
	OverallPercentage         float64                             `gorm:"default:0" json:"overallPercentage"`
	Status                    ProgressStatus                      `gorm:"size:16;default:'not_started';index" json:"status"`
	StartedAt                 *time.Time                          `json:"startedAt,omitempty"`
	CompletedAt               *time.Time                          `json:"completedAt,omitempty"`
	LastAccessed              time.Time                           `gorm:"index" json:"lastAccessed"`
	TimeSpent                 int64                               `gorm:"default:0" json:"timeSpent"` // seconds
	DailyLogs                 datatypes.JSONSlice[DailyLog]       `json:"dailyLogs"`
	MinimumTimeRequirementMet bool                                `gorm:"default:false" json:"minimumTimeRequirementMet"`
}

func (StudentTopicProgress) TableName() string {
	return "student_topic_progress"
}
