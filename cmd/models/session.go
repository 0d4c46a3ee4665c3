package models

import "gorm.io/gorm"

// Session is the locally persisted login state. A single row survives
// restarts; logging out deletes it.
type Session struct {
	gorm.Model
	UserID    uint    `gorm:"column:user_id;not null" json:"user_id"`
	Token     string  `gorm:"column:token;type:text;not null" json:"token"`
	Email     string  `gorm:"column:email" json:"email"`
	FirstName string  `gorm:"column:first_name" json:"first_name"`
	LastName  string  `gorm:"column:last_name" json:"last_name"`
	Avatar    string  `gorm:"column:avatar" json:"avatar"`
	Latitude  float64 `gorm:"column:latitude" json:"latitude"`
	Longitude float64 `gorm:"column:longitude" json:"longitude"`
}

func (Session) TableName() string {
	return "sessions"
}

// User rebuilds the profile snapshot held in the session row.
func (s *Session) User() *User {
	return &User{
		ID:        s.UserID,
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Avatar:    s.Avatar,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
	}
}
