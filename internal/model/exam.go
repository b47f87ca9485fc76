package model

import (
	"time"

	"gorm.io/datatypes"
)

type ExamQuestion struct {
	QuestionText  string   `json:"questionText"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// swagger:model Exam
type Exam struct {
	BaseModel
	SubjectID         uint                              `gorm:"index;not null" json:"subjectId"`
	TopicID           *uint                             `gorm:"index" json:"topicId,omitempty"`
	Level             StudentLevel                      `gorm:"size:16;index" json:"level"`
	Title             string                            `gorm:"size:191;not null" json:"title"`
	DurationInMinutes int                               `gorm:"not null" json:"durationInMinutes"`
	Questions         datatypes.JSONSlice[ExamQuestion] `json:"questions"`
	IsPublished       bool                              `gorm:"default:false;index" json:"isPublished"`
}

func (Exam) TableName() string {
	return "exams"
}

// swagger:model RecordExam
type RecordExam struct {
	BaseModel
	StudentID  uint     `gorm:"index;not null" json:"studentId"`
	Student    *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	ExamID     uint     `gorm:"index;not null" json:"examId"`
	Exam       *Exam    `gorm:"foreignKey:ExamID" json:"exam,omitempty"`
	Percentage float64  `json:"percentage"`
}

func (RecordExam) TableName() string {
	return "record_exams"
}

type QuizQuestionType string

const (
	QuizOpenEnded      QuizQuestionType = "open-ended"
	QuizMultipleChoice QuizQuestionType = "multiple-choice"
)

type QuizQuestion struct {
	QuestionText  string           `json:"questionText"`
	Type          QuizQuestionType `json:"type"`
	Options       []string         `json:"options,omitempty"`
	CorrectAnswer string           `json:"correctAnswer"`
}

// Quiz is the end-of-lesson quiz, one per (topic content, lesson).
// swagger:model Quiz
type Quiz struct {
	BaseModel
	TopicContentID     uint                              `gorm:"uniqueIndex:idx_quiz_content_lesson;not null" json:"topicContentId"`
	LessonID           string                            `gorm:"size:64;uniqueIndex:idx_quiz_content_lesson;not null" json:"lessonId"`
	Questions          datatypes.JSONSlice[QuizQuestion] `json:"questions"`
	Lifecycle          Lifecycle                         `gorm:"size:16;default:'active';index" json:"lifecycle"`
	LifecycleChangedAt *time.Time                        `json:"lifecycleChangedAt,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}
