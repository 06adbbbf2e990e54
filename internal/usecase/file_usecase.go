package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/internal/domain/service"
	"vaultdrive/pkg/cursor"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type FileUseCase struct {
	fileRepo     repository.FileRepository
	shareRepo    repository.ShareRepository
	blobs        service.BlobStorage
	signedURLTTL time.Duration
}

func NewFileUseCase(
	fileRepo repository.FileRepository,
	shareRepo repository.ShareRepository,
	blobs service.BlobStorage,
	signedURLTTL time.Duration,
) *FileUseCase {
	return &FileUseCase{
		fileRepo:     fileRepo,
		shareRepo:    shareRepo,
		blobs:        blobs,
		signedURLTTL: signedURLTTL,
	}
}

type ListFilesInput struct {
	SortBy   string
	SortDir  string
	PageSize int
	Cursor   string
	Starred  *bool
	Trashed  *bool
}

type FilePage struct {
	Rows []*entity.FileRecord
	// PageSize is the normalized requested size, not len(Rows): a short
	// final page still reports what was asked for.
	PageSize   int
	HasMore    bool
	NextCursor string
}

// ListFiles is the cursor paginator. A malformed cursor never surfaces as an
// error: where the token cannot name a position for the chosen sort key the
// listing restarts from the first page.
func (uc *FileUseCase) ListFiles(ctx context.Context, ownerID string, input ListFilesInput) (*FilePage, error) {
	if ownerID == "" {
		return nil, errors.NotAuthenticated(nil)
	}

	q := repository.ListQuery{
		SortBy:   normalizeSortKey(input.SortBy),
		Dir:      normalizeSortDir(input.SortDir),
		PageSize: normalizePageSize(input.PageSize),
		Starred:  input.Starred,
		Trashed:  input.Trashed,
	}

	q.After = cursor.Decode(input.Cursor)
	if q.After != nil && q.SortBy == repository.SortByCreatedAt {
		if _, ok := repository.AfterValue(q.After, q.SortBy).(time.Time); !ok {
			logger.Warn("Malformed cursor %q for timestamp sort, restarting from first page", input.Cursor)
			q.After = nil
		}
	}

	rows, hasMore, err := uc.fileRepo.ListPage(ctx, ownerID, q)
	if err != nil {
		return nil, err
	}

	page := &FilePage{Rows: rows, PageSize: q.PageSize, HasMore: hasMore}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = cursor.Encode(cursor.Payload{
			SortValue: repository.SortValueOf(last, q.SortBy),
			ID:        last.ID,
		})
	}
	return page, nil
}

func (uc *FileUseCase) GetFile(ctx context.Context, requesterID, fileID string) (*entity.FileRecord, error) {
	record, err := uc.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if record.OwnerID != requesterID {
		return nil, errors.Forbidden("You don't have access to this file", nil)
	}
	return record, nil
}

type UpdateFileInput struct {
	Name    *string
	Starred *bool
	Trashed *bool
	// Password protects the signed-URL gate; empty string clears it.
	Password *string
}

// UpdateFile mutates display metadata. The requester must be the owner or
// hold a write grant. The blob path never changes, even on rename.
func (uc *FileUseCase) UpdateFile(ctx context.Context, requesterID, requesterEmail, fileID string, input UpdateFileInput) (*entity.FileRecord, error) {
	record, err := uc.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if record.OwnerID != requesterID {
		if err := uc.requireGrant(ctx, fileID, requesterEmail, entity.ShareWrite); err != nil {
			return nil, err
		}
	}

	if input.Name != nil {
		name := SanitizeFileName(*input.Name)
		if name == "" {
			return nil, errors.BadRequest("File name must not be empty", nil)
		}
		record.Name = name
	}
	if input.Starred != nil {
		record.Starred = *input.Starred
	}
	if input.Trashed != nil {
		record.Trashed = *input.Trashed
	}
	if input.Password != nil {
		if *input.Password == "" {
			record.PasswordProtected = false
			record.PasswordHash = ""
		} else {
			record.PasswordProtected = true
			record.PasswordHash = hashPassword(*input.Password)
		}
	}

	if err := uc.fileRepo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeletePermanently removes the record and the blob together. The blob goes
// first: if that fails the record stays and the caller can retry, which
// keeps the "no record without a blob" invariant.
func (uc *FileUseCase) DeletePermanently(ctx context.Context, requesterID, fileID string) error {
	record, err := uc.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if record.OwnerID != requesterID {
		return errors.Forbidden("Only the owner can permanently delete a file", nil)
	}

	if err := uc.blobs.Delete(ctx, record.Path); err != nil {
		return errors.TransientStore("Failed to delete stored file", err)
	}
	return uc.fileRepo.Delete(ctx, fileID)
}

// SignedURL issues a time-limited download link. Owners and grantees may
// fetch one; a password-protected file additionally requires its password.
func (uc *FileUseCase) SignedURL(ctx context.Context, requesterID, requesterEmail, fileID, password string) (string, error) {
	record, err := uc.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return "", err
	}

	if record.OwnerID != requesterID {
		if err := uc.requireGrant(ctx, fileID, requesterEmail, entity.ShareRead); err != nil {
			return "", err
		}
	}

	if record.PasswordProtected {
		if password == "" || hashPassword(password) != record.PasswordHash {
			return "", errors.PermissionDenied("Invalid file password", nil)
		}
	}

	return uc.blobs.SignedURL(ctx, record.Path, uc.signedURLTTL)
}

// requireGrant checks the requester holds at least the given permission.
// Write implies read.
func (uc *FileUseCase) requireGrant(ctx context.Context, fileID, email string, min entity.SharePermission) error {
	email = entity.NormalizeEmail(email)
	if email == "" {
		return errors.Forbidden("You don't have access to this file", nil)
	}
	grant, err := uc.shareRepo.GetByFileAndEmail(ctx, fileID, email)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return errors.Forbidden("You don't have access to this file", nil)
		}
		return err
	}
	if min == entity.ShareWrite && grant.Permission != entity.ShareWrite {
		return errors.Forbidden("Write access required", nil)
	}
	return nil
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func normalizeSortKey(sortBy string) repository.SortKey {
	if sortBy == string(repository.SortByName) {
		return repository.SortByName
	}
	return repository.SortByCreatedAt
}

func normalizeSortDir(dir string) repository.SortDir {
	if dir == string(repository.SortAsc) {
		return repository.SortAsc
	}
	return repository.SortDesc
}

func normalizePageSize(size int) int {
	if size <= 0 {
		return defaultPageSize
	}
	if size > maxPageSize {
		return maxPageSize
	}
	return size
}
