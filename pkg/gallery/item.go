package gallery

import (
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/masonry/pkg/masonry"
)

// FileType is the kind of media a file holds.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
	FileTypeOther FileType = "other"
)

// IsMedia reports whether files of this type can be shown in the gallery.
func (t FileType) IsMedia() bool {
	return t == FileTypeImage || t == FileTypeVideo
}

// InteractionType distinguishes likes from comments.
type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionComment InteractionType = "comment"
)

// Interaction is a single like or comment on a file.
type Interaction struct {
	ID        int64           `json:"interaction_id" bson:"interaction_id"`
	Type      InteractionType `json:"interaction_type" bson:"interaction_type"`
	UserID    int64           `json:"user_id" bson:"user_id"`
	Username  string          `json:"username" bson:"username"`
	CreatedAt time.Time       `json:"created_datetime" bson:"created_datetime"`
	Comment   string          `json:"comment,omitempty" bson:"comment,omitempty"`
}

// Interactions summarizes the interactions on a file.
type Interactions struct {
	TotalLikes int           `json:"total_likes" bson:"total_likes"`
	Likes      []Interaction `json:"likes" bson:"likes"`
	Comments   []Interaction `json:"comments" bson:"comments"`
}

// MediaItem is a gallery file as served by the API.
type MediaItem struct {
	FileID       int64         `json:"file_id" bson:"file_id"`
	ObjectKey    string        `json:"object_key" bson:"object_key"`
	FileType     FileType      `json:"file_type" bson:"file_type"`
	Width        float64       `json:"width" bson:"width"`
	Height       float64       `json:"height" bson:"height"`
	Title        string        `json:"title" bson:"title"`
	Description  string        `json:"description" bson:"description"`
	Tags         []string      `json:"tags" bson:"tags"`
	Src          string        `json:"src,omitempty" bson:"src,omitempty"`
	UserID       int64         `json:"user_id" bson:"user_id"`
	Interactions *Interactions `json:"file_interactions,omitempty" bson:"file_interactions,omitempty"`
	CreatedAt    time.Time     `json:"created_datetime,omitzero" bson:"created_datetime"`
}

// LayoutID is the item's identity in a masonry layout: the object key, or
// "file:<id>" for items that have none yet.
func (m MediaItem) LayoutID() string {
	if m.ObjectKey != "" {
		return m.ObjectKey
	}
	return "file:" + strconv.FormatInt(m.FileID, 10)
}

// LayoutItem converts the media item to a masonry item.
func (m MediaItem) LayoutItem() masonry.Item {
	return masonry.Item{ID: m.LayoutID(), Width: m.Width, Height: m.Height}
}

// Matches reports whether the item matches a search term. The match is a
// case-insensitive substring test over title, description and tags; the
// empty term matches everything.
func (m MediaItem) Matches(term string) bool {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return true
	}
	if strings.Contains(strings.ToLower(m.Title), term) ||
		strings.Contains(strings.ToLower(m.Description), term) {
		return true
	}
	for _, tag := range m.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// FilterMedia returns the items that are images or videos, in order.
func FilterMedia(items []MediaItem) []MediaItem {
	out := make([]MediaItem, 0, len(items))
	for _, it := range items {
		if it.FileType.IsMedia() {
			out = append(out, it)
		}
	}
	return out
}

// LayoutItems converts media items to masonry items, preserving order.
func LayoutItems(items []MediaItem) []masonry.Item {
	out := make([]masonry.Item, len(items))
	for i, it := range items {
		out[i] = it.LayoutItem()
	}
	return out
}
