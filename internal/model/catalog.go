package model

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// swagger:model Subject
type Subject struct {
	BaseModel
	SubjectName string       `gorm:"size:191;not null;index" json:"subjectName"`
	ImageURL    string       `gorm:"size:255" json:"imageUrl"`
	Level       StudentLevel `gorm:"size:16;not null;index" json:"level"`
	ShowSubject bool         `json:"showSubject"`
}

func (Subject) TableName() string {
	return "subjects"
}

// swagger:model Topic
type Topic struct {
	BaseModel
	Title              string          `gorm:"size:191;not null" json:"title"`
	Description        string          `gorm:"type:text" json:"description"`
	SubjectID          uint            `gorm:"index;not null" json:"subjectId"`
	Subject            *Subject        `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	ShowTopic          bool            `json:"showTopic"`
	Price              decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"price"`
	RegularPrice       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"regularPrice"`
	SubscriptionPeriod string          `gorm:"size:32" json:"subscriptionPeriod"`
}

func (Topic) TableName() string {
	return "topics"
}

// Lesson is one block of a topic content page.
type Lesson struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Audio string `json:"audio"`
	Video string `json:"video"`
}

type ContentFileType string

const (
	FileTypeVideo    ContentFileType = "video"
	FileTypeAudio    ContentFileType = "audio"
	FileTypeDocument ContentFileType = "document"
)

// swagger:model TopicContent
type TopicContent struct {
	BaseModel
	Title         string                      `gorm:"size:191;not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	TopicID       uint                        `gorm:"index;not null" json:"topicId"`
	Topic         *Topic                      `gorm:"foreignKey:TopicID" json:"topic,omitempty"`
	Lessons       datatypes.JSONSlice[Lesson] `json:"lessons"`
	FilePaths     datatypes.JSONSlice[string] `json:"filePaths"`
	FileType      ContentFileType             `gorm:"size:16" json:"fileType"`
	VideoDuration float64                     `gorm:"default:0" json:"videoDuration"` // seconds
}

func (TopicContent) TableName() string {
	return "topic_contents"
}

// swagger:model Comment
type Comment struct {
	BaseModel
	TopicContentID uint      `gorm:"index;not null" json:"topicContentId"`
	StudentID      uint      `gorm:"index;not null" json:"studentId"`
	Student        *Student  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Body           string    `gorm:"type:text;not null" json:"comment"`
	Lifecycle      Lifecycle `gorm:"size:16;default:'active';index" json:"lifecycle"`
}

func (Comment) TableName() string {
	return "comments"
}

type ReactionType string

const (
	ReactionLike       ReactionType = "like"
	ReactionLove       ReactionType = "love"
	ReactionInsightful ReactionType = "insightful"
	ReactionConfused   ReactionType = "confused"
)

func (r ReactionType) Valid() bool {
	switch r {
	case ReactionLike, ReactionLove, ReactionInsightful, ReactionConfused:
		return true
	}
	return false
}

// Reaction is unique per (content, student); reacting again replaces the type.
type Reaction struct {
	BaseModel
	TopicContentID uint         `gorm:"uniqueIndex:idx_reaction_content_student;not null" json:"topicContentId"`
	StudentID      uint         `gorm:"uniqueIndex:idx_reaction_content_student;not null" json:"studentId"`
	Type           ReactionType `gorm:"size:16;not null" json:"type"`
}

func (Reaction) TableName() string {
	return "reactions"
}

// swagger:model LibraryBook
type LibraryBook struct {
	BaseModel
	Title          string       `gorm:"size:191;not null" json:"title"`
	SubjectID      uint         `gorm:"index" json:"subjectId"`
	Level          StudentLevel `gorm:"size:16;index" json:"level"`
	AuthorFullName string       `gorm:"size:191" json:"authorFullName"`
	FilePath       string       `gorm:"size:255" json:"filePath"`
	Description    string       `gorm:"type:text" json:"description"`
	ShowBook       bool         `json:"showBook"`
	Likes          int          `gorm:"default:0" json:"likes"`
}

func (LibraryBook) TableName() string {
	return "library_books"
}

type BookLike struct {
	BookID    uint `gorm:"primaryKey" json:"bookId"`
	StudentID uint `gorm:"primaryKey" json:"studentId"`
}

func (BookLike) TableName() string {
	return "book_likes"
}

// swagger:model HomeBanner
type HomeBanner struct {
	BaseModel
	Title      string `gorm:"size:191" json:"title"`
	ImageURL   string `gorm:"size:255;not null" json:"imageUrl"`
	Link       string `gorm:"size:255" json:"link"`
	ShowBanner bool   `json:"showBanner"`
}

func (HomeBanner) TableName() string {
	return "home_banners"
}
