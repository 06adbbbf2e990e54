package usecase

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/internal/domain/service"
	"vaultdrive/pkg/errors"
	"vaultdrive/pkg/logger"
)

// PermissionChecker is the platform capability gate that runs before any
// bytes move. Failure is fatal to the upload and is never retried.
type PermissionChecker interface {
	EnsureUploadAllowed(ctx context.Context, ownerID string, kind entity.FileKind) error
}

// AllowAllPermissions is the server-side gate: authentication happened at the
// transport, nothing further to check.
type AllowAllPermissions struct{}

func (AllowAllPermissions) EnsureUploadAllowed(ctx context.Context, ownerID string, kind entity.FileKind) error {
	return nil
}

// UploadUseCase runs the admission flow: permission check, quota check, blob
// upload with bounded retry, then the metadata write. The blob always lands
// before the record so a record never points at a missing blob. A metadata
// write failure leaves the blob orphaned with no record; it is unreachable
// without one, so this is a leak, not corruption, and no compensating delete
// is attempted.
type UploadUseCase struct {
	fileRepo    repository.FileRepository
	blobs       service.BlobStorage
	quota       *QuotaUseCase
	permissions PermissionChecker

	maxAttempts int
	backoffBase time.Duration
}

func NewUploadUseCase(
	fileRepo repository.FileRepository,
	blobs service.BlobStorage,
	quota *QuotaUseCase,
	permissions PermissionChecker,
) *UploadUseCase {
	return &UploadUseCase{
		fileRepo:    fileRepo,
		blobs:       blobs,
		quota:       quota,
		permissions: permissions,
		maxAttempts: 3,
		backoffBase: 200 * time.Millisecond,
	}
}

type UploadInput struct {
	OwnerID     string
	Name        string
	Size        int64
	ContentType string
	// Body must be seekable so a transient blob-store failure can rewind
	// and retry from the start.
	Body io.ReadSeeker
}

func (uc *UploadUseCase) Upload(ctx context.Context, input UploadInput) (*entity.FileRecord, error) {
	if input.OwnerID == "" {
		return nil, errors.NotAuthenticated(nil)
	}
	if input.Size < 0 {
		return nil, errors.BadRequest("File size must not be negative", nil)
	}

	kind := entity.KindForContentType(input.ContentType)

	if err := uc.permissions.EnsureUploadAllowed(ctx, input.OwnerID, kind); err != nil {
		if errors.Code(err) != "" {
			return nil, err
		}
		return nil, errors.PermissionDenied("Upload not permitted", err)
	}

	ok, remaining, err := uc.quota.CanAdmit(ctx, input.OwnerID, input.Size)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.QuotaExceeded(remaining)
	}

	// The id is minted here, before any write, because the blob path is a
	// pure function of (owner, id, name at creation).
	fileID := uuid.New().String()
	name := SanitizeFileName(input.Name)
	path := StoragePath(input.OwnerID, fileID, name)

	if err := uc.putWithRetry(ctx, path, input.Body, input.ContentType); err != nil {
		return nil, err
	}

	record := &entity.FileRecord{
		ID:          fileID,
		OwnerID:     input.OwnerID,
		Name:        name,
		Path:        path,
		Size:        input.Size,
		ContentType: input.ContentType,
		Kind:        kind,
	}
	if err := uc.fileRepo.Create(ctx, record); err != nil {
		logger.Error("Metadata write failed after blob upload, orphaned blob at %s: %v", path, err)
		return nil, errors.MetadataWriteFailed(path, err)
	}

	return record, nil
}

func (uc *UploadUseCase) putWithRetry(ctx context.Context, path string, body io.ReadSeeker, contentType string) error {
	var lastErr error
	for attempt := 0; attempt < uc.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := uc.backoffBase << (attempt - 1)
			logger.Warn("Blob upload attempt %d failed for %s, retrying in %v: %v", attempt, path, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return errors.TransientStore("Upload cancelled", ctx.Err())
			}
		}

		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return errors.Internal("Failed to rewind upload body", err)
		}
		lastErr = uc.blobs.Put(ctx, path, body, contentType)
		if lastErr == nil {
			return nil
		}
	}

	return errors.TransientStore(
		fmt.Sprintf("Failed to store file after %d attempts (path: %s)", uc.maxAttempts, path),
		lastErr,
	)
}

var (
	unsafeNameChars = regexp.MustCompile(`[\n\r\t#\[\]*?]`)
	nameWhitespace  = regexp.MustCompile(`\s+`)
)

// SanitizeFileName makes a display name safe to embed in a blob path and a
// document field: control characters and `#[]*?` become underscores, runs of
// whitespace collapse to one space.
func SanitizeFileName(name string) string {
	out := unsafeNameChars.ReplaceAllString(name, "_")
	out = nameWhitespace.ReplaceAllString(out, " ")
	out = strings.TrimSpace(out)
	if out == "" {
		out = "untitled"
	}
	return out
}

// StoragePath derives the immutable blob key. Renames do not move the blob.
func StoragePath(ownerID, fileID, name string) string {
	return fmt.Sprintf("files/%s/%s/%s", ownerID, fileID, name)
}
