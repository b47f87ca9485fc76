package model

import "gorm.io/datatypes"

type StudentLevel string

const (
	LevelOLevel StudentLevel = "O Level"
	LevelALevel StudentLevel = "A Level"
	LevelForm1  StudentLevel = "Form 1"
	LevelForm2  StudentLevel = "Form 2"
	LevelForm3  StudentLevel = "Form 3"
	LevelForm4  StudentLevel = "Form 4"
)

func (l StudentLevel) Valid() bool {
	switch l {
	case LevelOLevel, LevelALevel, LevelForm1, LevelForm2, LevelForm3, LevelForm4:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
	SubscriptionPending  SubscriptionStatus = "pending"
)

// swagger:model Student
type Student struct {
	BaseModel
	FirstName          string                      `gorm:"size:100;not null" json:"firstName"`
	LastName           string                      `gorm:"size:100;not null" json:"lastName"`
	Email              string                      `gorm:"size:191;uniqueIndex;not null" json:"email"`
	PhoneNumber        string                      `gorm:"size:32;not null" json:"phoneNumber"`
	Password           string                      `gorm:"size:100;not null" json:"-"`
	Level              StudentLevel                `gorm:"size:16;not null" json:"level"`
	Address            string                      `gorm:"size:255" json:"address"`
	School             string                      `gorm:"size:191" json:"school"`
	Subjects           datatypes.JSONSlice[string] `json:"subjects"`
	SubscriptionStatus SubscriptionStatus          `gorm:"size:16;default:'pending'" json:"subscriptionStatus"`
	ProfilePicture     string                      `gorm:"size:255" json:"profilePicture"`
	NextOfKinName      string                      `gorm:"size:191" json:"nextOfKinName"`
	NextOfKinPhone     string                      `gorm:"size:32" json:"nextOfKinPhone"`
	IsPhoneVerified    bool                        `gorm:"default:false" json:"isPhoneVerified"`
}

func (Student) TableName() string {
	return "students"
}
