package model

type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleTeacher   UserRole = "teacher"
	RoleMainAdmin UserRole = "main admin"
)

// IsAdmin reports whether the role belongs to the admins table.
func (r UserRole) IsAdmin() bool {
	return r == RoleTeacher || r == RoleMainAdmin
}

// swagger:model Admin
type Admin struct {
	BaseModel
	FirstName      string   `gorm:"size:100;not null" json:"firstName"`
	LastName       string   `gorm:"size:100;not null" json:"lastName"`
	Email          string   `gorm:"size:191;uniqueIndex;not null" json:"email"`
	ContactNumber  string   `gorm:"size:32" json:"contactNumber"`
	Password       string   `gorm:"size:100;not null" json:"-"`
	Role           UserRole `gorm:"size:16;default:'teacher'" json:"role"`
	ProfilePicture string   `gorm:"size:255" json:"profilePicture"`
}

func (Admin) TableName() string {
	return "admins"
}
