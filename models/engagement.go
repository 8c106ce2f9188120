package models

import (
	"time"

	"gorm.io/gorm"
)

type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentComment  ContentType = "comment"
	ContentTweet    ContentType = "tweet"
	ContentPlaylist ContentType = "playlist"
)

func (t ContentType) Valid() bool {
	switch t {
	case ContentVideo, ContentComment, ContentTweet, ContentPlaylist:
		return true
	}
	return false
}

// ContentRef points at one row of one content table. Build it with the
// typed constructors so the type tag always matches the id's table.
type ContentRef struct {
	Type ContentType
	ID   string
}

func VideoRef(id string) ContentRef { return ContentRef{Type: ContentVideo, ID: id} }
func CommentRef(id string) ContentRef { return ContentRef{Type: ContentComment, ID: id} }
func TweetRef(id string) ContentRef { return ContentRef{Type: ContentTweet, ID: id} }
func PlaylistRef(id string) ContentRef { return ContentRef{Type: ContentPlaylist, ID: id} }

// GroupRefs buckets references by content type.
func GroupRefs(refs []ContentRef) map[ContentType][]string {
	out := make(map[ContentType][]string)
	for _, ref := range refs {
		out[ref.Type] = append(out[ref.Type], ref.ID)
	}
	return out
}

type EngagementType string

const (
	EngagementLike    EngagementType = "like"
	EngagementDislike EngagementType = "dislike"
	EngagementLove    EngagementType = "love"
	EngagementLaugh   EngagementType = "laugh"
	EngagementSad     EngagementType = "sad"
	EngagementAngry   EngagementType = "angry"
)

type Engagement struct {
	ID             string         `gorm:"type:char(36);primaryKey" json:"id"`
	UserID         string         `gorm:"type:char(36);not null;uniqueIndex:idx_user_content" json:"user_id"`
	ContentType    ContentType    `gorm:"type:varchar(10);not null;uniqueIndex:idx_user_content;index:idx_content" json:"content_type"`
	ContentID      string         `gorm:"type:char(36);not null;uniqueIndex:idx_user_content;index:idx_content" json:"content_id"`
	EngagementType EngagementType `gorm:"type:varchar(10);not null" json:"engagement_type"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (e *Engagement) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (e Engagement) Ref() ContentRef {
	return ContentRef{Type: e.ContentType, ID: e.ContentID}
}
