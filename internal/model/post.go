package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	// PostTitleMaxLen bounds Post.Title.
	PostTitleMaxLen = 200
	// PostTagsMaxLen bounds Post.Tags.
	PostTagsMaxLen = 255
)

// Post is an authored blog entry. AuthorID is set server-side from the caller.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Tags      string    `json:"tags" gorm:"size:255;not null;default:''"`
	Image     *string   `json:"image" gorm:"size:255"`
	AuthorID  uint      `json:"author" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// AuthorUsername is derived from the author record after loading.
	AuthorUsername string `json:"author_username" gorm:"-"`

	// Relations
	Author User `json:"-" gorm:"foreignKey:AuthorID"`
}

// AfterFind fills AuthorUsername once the Author association has been preloaded.
func (p *Post) AfterFind(tx *gorm.DB) error {
	if p.Author.ID != 0 {
		p.AuthorUsername = p.Author.Username
	}
	return nil
}
