package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Student struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SchoolID  snowflake.ID `gorm:"not null;index" json:"school_id"`
	FirstName string       `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName  string       `gorm:"type:varchar(100);not null" json:"last_name"`
	Email     string       `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Student) TableName() string { return "students" }

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
