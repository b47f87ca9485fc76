package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model Community
type Community struct {
	BaseModel
	Name           string            `gorm:"size:191;not null" json:"name"`
	ProfilePicture string            `gorm:"size:255" json:"profilePicture"`
	SubjectID      uint              `gorm:"index" json:"subjectId"`
	Subject        *Subject          `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	Level          StudentLevel      `gorm:"size:16;index" json:"level"`
	ShowCommunity  bool              `json:"showCommunity"`
	Members        []CommunityMember `gorm:"foreignKey:CommunityID" json:"members,omitempty"`
}

func (Community) TableName() string {
	return "communities"
}

type CommunityMember struct {
	ID          uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	CommunityID uint        `gorm:"index;not null" json:"communityId"`
	Member      Participant `gorm:"embedded;embeddedPrefix:member_" json:"member"`
	JoinedAt    time.Time   `gorm:"autoCreateTime" json:"joinedAt"`
}

func (CommunityMember) TableName() string {
	return "community_members"
}

// swagger:model CommunityMessage
type CommunityMessage struct {
	BaseModel
	CommunityID uint                        `gorm:"index;not null" json:"communityId"`
	Sender      Participant                 `gorm:"embedded;embeddedPrefix:sender_" json:"sender"`
	Message     string                      `gorm:"type:text" json:"message"`
	ImagePaths  datatypes.JSONSlice[string] `json:"imagePaths"`
}

func (CommunityMessage) TableName() string {
	return "community_messages"
}

type ChatMessageType string

const (
	ChatGeneral            ChatMessageType = "general"
	ChatContentHelpRequest ChatMessageType = "content_help_request"
)

// swagger:model ChatMessage
type ChatMessage struct {
	BaseModel
	Sender         Participant                 `gorm:"embedded;embeddedPrefix:sender_" json:"sender"`
	Receiver       Participant                 `gorm:"embedded;embeddedPrefix:receiver_" json:"receiver"`
	Message        string                      `gorm:"type:text" json:"message"`
	ImageAttached  datatypes.JSONSlice[string] `json:"imageAttached"`
	TopicContentID *uint                       `gorm:"index" json:"topicContentId,omitempty"`
	LessonInfoID   string                      `gorm:"size:64" json:"lessonInfoId,omitempty"`
	MessageType    ChatMessageType             `gorm:"size:32;default:'general'" json:"messageType"`
	Viewed         bool                        `gorm:"default:false;index" json:"viewed"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
