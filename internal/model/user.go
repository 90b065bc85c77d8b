package model

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// User is owned by the account collaborator; the engine only reads and writes
// the progression columns (Points, Level).
// swagger:model User
type User struct {
	BaseModel
	Name   string   `gorm:"size:100;not null" json:"name"`
	Email  string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Role   UserRole `gorm:"size:20;default:'student'" json:"role"`
	Points int      `gorm:"default:0" json:"points"` // cumulative XP
	Level  int      `gorm:"default:1" json:"level"`
}

func (User) TableName() string {
	return "users"
}
