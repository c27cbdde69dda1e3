package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the coarse role carried in tokens.
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleAdmin  Role = "ADMIN"
)

// User is an account: a client placing orders or an admin.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Email     string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName string         `gorm:"size:100" json:"first_name,omitempty"`
	LastName  string         `gorm:"size:100" json:"last_name,omitempty"`
	Phone     string         `gorm:"size:50" json:"phone,omitempty"`
	Address   string         `gorm:"size:500" json:"address,omitempty"`
	Password  string         `gorm:"size:255;not null" json:"-"` // bcrypt hash
	Role      Role           `gorm:"size:20;not null;default:'CLIENT'" json:"role"`
	// ProfileID links the user to an authorization profile.
	ProfileID *uint    `gorm:"index" json:"-"`
	Profile   *Profile `gorm:"foreignKey:ProfileID" json:"-"`
}

// FullName returns "First Last", or the email when both are empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}
