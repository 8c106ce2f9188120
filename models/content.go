package models

import (
	"time"

	"gorm.io/gorm"
)

type Video struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID     *string   `gorm:"type:char(36);index" json:"owner_id"`
	ChannelName string    `gorm:"type:varchar(100)" json:"channel_name"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	VideoFile   string    `gorm:"type:varchar(1000)" json:"video_file"`
	Thumbnail   string    `gorm:"type:varchar(1000)" json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `gorm:"default:0" json:"views"`
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (v *Video) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

type Comment struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID    *string   `gorm:"type:char(36);index" json:"owner_id"`
	AuthorName string    `gorm:"type:varchar(100)" json:"author_name"`
	VideoID    string    `gorm:"type:char(36);index;not null" json:"video_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Hidden     bool      `gorm:"default:false" json:"hidden"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

type Tweet struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:char(36);index;not null" json:"owner_id"`
	Content   string    `gorm:"type:varchar(1000);not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Tweet) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type Playlist struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID     string    `gorm:"type:char(36);index;not null" json:"owner_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Playlist) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// OwnedContent holds the ids of everything a channel owns, captured before
// any retention step clears the owner references.
type OwnedContent struct {
	VideoIDs    []string
	CommentIDs  []string
	TweetIDs    []string
	PlaylistIDs []string
}

// Refs returns a typed reference for every owned item.
func (o OwnedContent) Refs() []ContentRef {
	refs := make([]ContentRef, 0, len(o.VideoIDs)+len(o.CommentIDs)+len(o.TweetIDs)+len(o.PlaylistIDs))
	for _, id := range o.VideoIDs {
		refs = append(refs, VideoRef(id))
	}
	for _, id := range o.CommentIDs {
		refs = append(refs, CommentRef(id))
	}
	for _, id := range o.TweetIDs {
		refs = append(refs, TweetRef(id))
	}
	for _, id := range o.PlaylistIDs {
		refs = append(refs, PlaylistRef(id))
	}
	return refs
}
