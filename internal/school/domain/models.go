package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// School owns students and fixes the currency their invoices are billed in.
type School struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_schools_name_country" json:"name"`
	Slug      string       `gorm:"type:varchar(300);not null" json:"slug"`
	Country   string       `gorm:"type:char(2);not null;uniqueIndex:ux_schools_name_country" json:"country"`
	Currency  string       `gorm:"type:char(3);not null" json:"currency"`
	IsActive  bool         `gorm:"not null" json:"is_active"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (School) TableName() string { return "schools" }
