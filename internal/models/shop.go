package models

import "github.com/google/uuid"

type Category struct {
	BaseModel
	Name  string `gorm:"not null" json:"name"`
	Slug  string `gorm:"uniqueIndex" json:"slug"`
	Shops []Shop `json:"shops,omitempty"`
}

// Shop is a tenant of the platform. Orders reference it by Code or ID.
type Shop struct {
	BaseModel
	Code       string     `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name       string     `gorm:"not null" json:"name"`
	CategoryID *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category   *Category  `json:"category,omitempty"`
}
