package model

import "time"

const (
	// ProfileLocationMaxLen bounds Profile.Location.
	ProfileLocationMaxLen = 100
)

// Profile is the one-to-one descriptive extension of a User.
type Profile struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	UserID         uint      `json:"-" gorm:"uniqueIndex;not null"`
	Bio            string    `json:"bio" gorm:"type:text;not null"`
	Location       string    `json:"location" gorm:"size:100;not null;default:''"`
	BirthDate      *Date     `json:"birth_date"`
	ProfilePicture *string   `json:"profile_picture" gorm:"size:255"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}
