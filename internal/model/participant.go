package model

import "fmt"

type ParticipantKind string

const (
	ParticipantStudent ParticipantKind = "student"
	ParticipantAdmin   ParticipantKind = "admin"
)

func (k ParticipantKind) Valid() bool {
	return k == ParticipantStudent || k == ParticipantAdmin
}

// Participant identifies either a student or an admin. It is embedded with a
// column prefix wherever a row points at "one of" the two account tables.
type Participant struct {
	Kind  ParticipantKind `gorm:"size:16;not null;index" json:"kind"`
	RefID uint            `gorm:"not null;index" json:"id"`
}

func StudentParticipant(id uint) Participant {
	return Participant{Kind: ParticipantStudent, RefID: id}
}

func AdminParticipant(id uint) Participant {
	return Participant{Kind: ParticipantAdmin, RefID: id}
}

func (p Participant) String() string {
	return fmt.Sprintf("%s:%d", p.Kind, p.RefID)
}

// ParticipantProfile is the public view resolved for a participant.
type ParticipantProfile struct {
	Participant
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	ProfilePicture string `json:"profilePicture"`
}
