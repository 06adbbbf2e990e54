package entity

import (
	"strings"
	"time"
)

type SharePermission string

const (
	ShareRead  SharePermission = "read"
	ShareWrite SharePermission = "write"
)

// ShareGrant gives one grantee email access to one file. Grants are created,
// updated and revoked by the file owner only.
type ShareGrant struct {
	FileID     string          `json:"file_id" firestore:"fileId" gorm:"primaryKey"`
	Email      string          `json:"email" firestore:"email" gorm:"primaryKey"`
	Permission SharePermission `json:"permission" firestore:"permission"`
	OwnerID    string          `json:"owner_id" firestore:"ownerId" gorm:"index"`
	OwnerEmail string          `json:"owner_email,omitempty" firestore:"ownerEmail"`
	CreatedAt  time.Time       `json:"created_at" firestore:"createdAt"`
	UpdatedAt  time.Time       `json:"updated_at" firestore:"updatedAt"`
}

func (ShareGrant) TableName() string {
	return "file_shares"
}

// SharedFile is one row of the "shared with me" aggregate: the grant joined
// with the file it points at.
type SharedFile struct {
	File       *FileRecord     `json:"file"`
	Permission SharePermission `json:"permission"`
	OwnerEmail string          `json:"owner_email,omitempty"`
}

// NormalizeEmail canonicalizes a grantee identity for use as a grant key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
