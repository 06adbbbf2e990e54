package entity

import (
	"strings"
	"time"
)

type FileKind string

const (
	FileKindImage    FileKind = "image"
	FileKindVideo    FileKind = "video"
	FileKindDocument FileKind = "document"
)

// FileRecord is the metadata document for one stored blob. Path is derived
// from (owner, id, name at creation) and never changes, even on rename.
type FileRecord struct {
	ID                string    `json:"id" firestore:"id" gorm:"primaryKey"`
	OwnerID           string    `json:"owner_id" firestore:"ownerId" gorm:"index;not null"`
	Name              string    `json:"name" firestore:"name"`
	Path              string    `json:"path" firestore:"path"`
	Size              int64     `json:"size" firestore:"size"`
	ContentType       string    `json:"content_type" firestore:"contentType"`
	Kind              FileKind  `json:"kind" firestore:"kind"`
	Starred           bool      `json:"starred" firestore:"starred"`
	Trashed           bool      `json:"trashed" firestore:"trashed"`
	PasswordProtected bool      `json:"password_protected" firestore:"passwordProtected"`
	PasswordHash      string    `json:"-" firestore:"passwordHash"`
	CreatedAt         time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt         time.Time `json:"updated_at" firestore:"updatedAt"`
}

// TableName matches the Supabase schema.
func (FileRecord) TableName() string {
	return "files"
}

// KindForContentType buckets a MIME type into the three display kinds.
func KindForContentType(contentType string) FileKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return FileKindImage
	case strings.HasPrefix(contentType, "video/"):
		return FileKindVideo
	default:
		return FileKindDocument
	}
}
