package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleViewer Role = "viewer"
)

// User is an API principal. Its ID is the actor recorded on alert lifecycle changes.
type User struct {
	Model
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	Role     Role   `gorm:"not null" json:"role"`
	Email    string `gorm:"uniqueIndex" json:"email"`
	IsActive bool   `gorm:"default:true" json:"is_active"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

type TeamRole string

const (
	TeamRoleOwner  TeamRole = "owner"
	TeamRoleAdmin  TeamRole = "admin"
	TeamRoleMember TeamRole = "member"
	TeamRoleViewer TeamRole = "viewer"
)

// TeamMember rows keep insertion order through their auto-increment ID.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TeamID    string    `gorm:"uniqueIndex:idx_team_user;not null" json:"team_id"`
	UserID    string    `gorm:"uniqueIndex:idx_team_user;not null" json:"user_id"`
	Role      TeamRole  `gorm:"not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
