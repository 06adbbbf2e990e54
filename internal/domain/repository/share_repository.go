package repository

import (
	"context"

	"vaultdrive/internal/domain/entity"
)

type ShareRepository interface {
	// Upsert creates or replaces the grant for (grant.FileID, grant.Email).
	Upsert(ctx context.Context, grant *entity.ShareGrant) error
	GetByFileAndEmail(ctx context.Context, fileID, email string) (*entity.ShareGrant, error)
	Revoke(ctx context.Context, fileID, email string) error
	ListByFile(ctx context.Context, fileID string) ([]*entity.ShareGrant, error)

	// ListByEmail is the cross-file "shared with me" lookup keyed by the
	// normalized grantee email.
	ListByEmail(ctx context.Context, email string) ([]*entity.SharedFile, error)
}
