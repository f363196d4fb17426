package models

type Profile struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	FullName string `gorm:"size:100" json:"full_name"`
	Phone    string `gorm:"size:20" json:"phone"`
	Email    string `gorm:"size:100" json:"email"`
}

func (Profile) TableName() string {
	return "profiles"
}
