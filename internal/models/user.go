package models

import "github.com/google/uuid"

// User is a shop staff member allowed to manage orders.
type User struct {
	BaseModel
	Name         string     `json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `json:"-"`
	ShopID       *uuid.UUID `gorm:"type:uuid" json:"shop_id"`
}
