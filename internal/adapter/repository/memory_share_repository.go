package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/pkg/errors"
)

type shareKey struct {
	fileID string
	email  string
}

type MemoryShareRepository struct {
	mu     sync.RWMutex
	grants map[shareKey]*entity.ShareGrant
	files  repository.FileRepository
}

// NewMemoryShareRepository joins grants against the given file repository for
// the "shared with me" aggregate.
func NewMemoryShareRepository(files repository.FileRepository) *MemoryShareRepository {
	return &MemoryShareRepository{
		grants: make(map[shareKey]*entity.ShareGrant),
		files:  files,
	}
}

// Upsert stores the grant under its email key. Emails arrive canonical from
// the use-case layer.
func (r *MemoryShareRepository) Upsert(ctx context.Context, grant *entity.ShareGrant) error {
	now := time.Now()
	if grant.CreatedAt.IsZero() {
		grant.CreatedAt = now
	}
	grant.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *grant
	r.grants[shareKey{grant.FileID, grant.Email}] = &clone
	return nil
}

func (r *MemoryShareRepository) GetByFileAndEmail(ctx context.Context, fileID, email string) (*entity.ShareGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grant, ok := r.grants[shareKey{fileID, email}]
	if !ok {
		return nil, errors.NotFound("Share grant", nil)
	}
	clone := *grant
	return &clone, nil
}

func (r *MemoryShareRepository) Revoke(ctx context.Context, fileID, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.grants, shareKey{fileID, email})
	return nil
}

func (r *MemoryShareRepository) ListByFile(ctx context.Context, fileID string) ([]*entity.ShareGrant, error) {
	r.mu.RLock()
	var grants []*entity.ShareGrant
	for key, grant := range r.grants {
		if key.fileID == fileID {
			clone := *grant
			grants = append(grants, &clone)
		}
	}
	r.mu.RUnlock()

	sort.Slice(grants, func(i, j int) bool { return grants[i].Email < grants[j].Email })
	return grants, nil
}

func (r *MemoryShareRepository) ListByEmail(ctx context.Context, email string) ([]*entity.SharedFile, error) {
	r.mu.RLock()
	var grants []*entity.ShareGrant
	for key, grant := range r.grants {
		if key.email == email {
			clone := *grant
			grants = append(grants, &clone)
		}
	}
	r.mu.RUnlock()

	var rows []*entity.SharedFile
	for _, grant := range grants {
		record, err := r.files.GetByID(ctx, grant.FileID)
		if err != nil {
			continue
		}
		rows = append(rows, &entity.SharedFile{
			File:       record,
			Permission: grant.Permission,
			OwnerEmail: grant.OwnerEmail,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].File.ID < rows[j].File.ID })
	return rows, nil
}
