package repository

import (
	"context"
	"time"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/pkg/cursor"
)

type SortKey string

const (
	SortByName      SortKey = "name"
	SortByCreatedAt SortKey = "created_at"
)

type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// ListQuery selects one page of an owner's files. After, when set, resumes
// strictly after the named position; ties on the sort key are broken by
// record id ascending so resumption never skips or repeats rows.
type ListQuery struct {
	SortBy   SortKey
	Dir      SortDir
	PageSize int
	After    *cursor.Payload
	Starred  *bool
	Trashed  *bool
}

// Subscription is a live query handle. Updates delivers the full current
// result set on every change until Unsubscribe is called; the channel is
// closed on unsubscribe or stream error.
type Subscription interface {
	Updates() <-chan []*entity.FileRecord
	Unsubscribe()
}

// FileRepository is the provider-facing persistence contract. Implementations
// exist per backend (Firestore, Postgres, in-memory); callers depend only on
// this interface.
type FileRepository interface {
	Create(ctx context.Context, record *entity.FileRecord) error
	GetByID(ctx context.Context, id string) (*entity.FileRecord, error)
	Update(ctx context.Context, record *entity.FileRecord) error
	Delete(ctx context.Context, id string) error

	// ListPage returns at most q.PageSize rows ordered by the sort key with
	// the id tie-break. The bool reports whether more rows exist past the
	// returned page.
	ListPage(ctx context.Context, ownerID string, q ListQuery) ([]*entity.FileRecord, bool, error)

	// SumSizeByOwner totals size over every record the owner has, trashed
	// included: trash is recoverable, so it still occupies quota.
	SumSizeByOwner(ctx context.Context, ownerID string) (int64, error)

	// SubscribeOwner opens a live query over the owner's full record set.
	SubscribeOwner(ctx context.Context, ownerID string) (Subscription, error)
}

// SortValueOf extracts the sort field of a record in cursor wire form.
func SortValueOf(record *entity.FileRecord, key SortKey) string {
	if key == SortByCreatedAt {
		return cursor.FormatTime(record.CreatedAt)
	}
	return record.Name
}

// AfterValue converts a decoded cursor into the native sort value for the
// key. Timestamps that fail to parse degrade to the raw string, matching the
// codec's best-effort fallback for foreign tokens.
func AfterValue(p *cursor.Payload, key SortKey) interface{} {
	if key == SortByCreatedAt {
		if t, err := time.Parse(time.RFC3339Nano, p.SortValue); err == nil {
			return t
		}
	}
	return p.SortValue
}
