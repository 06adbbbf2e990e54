package usecase

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "vaultdrive/internal/adapter/repository"
	"vaultdrive/internal/domain/entity"
	"vaultdrive/pkg/errors"
)

const testQuota = int64(10 * 1024 * 1024) // 10 MB

func newUploadEnv() (*UploadUseCase, *adapter.MemoryFileRepository, *fakeBlobStorage, *QuotaUseCase) {
	files := adapter.NewMemoryFileRepository()
	blobs := newFakeBlobStorage()
	quota := NewQuotaUseCase(files, testQuota)
	uc := NewUploadUseCase(files, blobs, quota, AllowAllPermissions{})
	uc.backoffBase = time.Millisecond
	return uc, files, blobs, quota
}

func uploadInput(owner, name string, size int64, contentType string) UploadInput {
	return UploadInput{
		OwnerID:     owner,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Body:        bytes.NewReader(make([]byte, 16)),
	}
}

func TestUploadCreatesBlobThenRecord(t *testing.T) {
	uc, files, blobs, quota := newUploadEnv()
	ctx := context.Background()

	record, err := uc.Upload(ctx, uploadInput("user-1", "vacation.jpg", 5242880, "image/jpeg"))
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "user-1", record.OwnerID)
	assert.Equal(t, "vacation.jpg", record.Name)
	assert.Equal(t, "files/user-1/"+record.ID+"/vacation.jpg", record.Path)
	assert.Equal(t, int64(5242880), record.Size)
	assert.Equal(t, entity.FileKindImage, record.Kind)
	assert.False(t, record.Trashed)
	assert.False(t, record.Starred)

	stored, err := files.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Path, stored.Path)
	assert.Equal(t, 1, blobs.blobCount())

	used, err := quota.CurrentUsage(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(5242880), used)
}

func TestUploadRejectedAtQuotaLimit(t *testing.T) {
	uc, files, blobs, _ := newUploadEnv()
	ctx := context.Background()

	_, err := uc.Upload(ctx, uploadInput("user-1", "big.bin", testQuota, "application/octet-stream"))
	require.NoError(t, err)

	// Owner sits exactly at the limit; any candidate over zero bytes fails.
	_, err = uc.Upload(ctx, uploadInput("user-1", "one-more.txt", 1, "text/plain"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, "QUOTA_EXCEEDED"))

	// Rejection happens before any write: one blob, one record.
	assert.Equal(t, 1, blobs.blobCount())
	rows, _, err := files.ListPage(ctx, "user-1", listAll())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestUploadQuotaReportsRemaining(t *testing.T) {
	uc, _, _, _ := newUploadEnv()
	ctx := context.Background()

	_, err := uc.Upload(ctx, uploadInput("user-1", "seven.bin", 7*1024*1024, "application/octet-stream"))
	require.NoError(t, err)

	_, err = uc.Upload(ctx, uploadInput("user-1", "four.bin", 4*1024*1024, "application/octet-stream"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Remaining: 3 MB")
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	uc, _, blobs, _ := newUploadEnv()
	blobs.failPuts = 2

	record, err := uc.Upload(context.Background(), uploadInput("user-1", "clip.mp4", 1024, "video/mp4"))
	require.NoError(t, err)
	assert.Equal(t, entity.FileKindVideo, record.Kind)
	assert.Equal(t, 3, blobs.putCalls)
}

func TestUploadFailsAfterRetryBudget(t *testing.T) {
	uc, files, blobs, _ := newUploadEnv()
	blobs.failPuts = 3

	_, err := uc.Upload(context.Background(), uploadInput("user-1", "doc.pdf", 1024, "application/pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, "TRANSIENT_STORE_ERROR"))
	assert.Contains(t, err.Error(), "files/user-1/")
	assert.Equal(t, 3, blobs.putCalls)
	assert.Equal(t, 0, blobs.blobCount())

	rows, _, err := files.ListPage(context.Background(), "user-1", listAll())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUploadMetadataFailureLeavesOrphanedBlob(t *testing.T) {
	files := adapter.NewMemoryFileRepository()
	blobs := newFakeBlobStorage()
	quota := NewQuotaUseCase(files, testQuota)
	uc := NewUploadUseCase(&failingCreateRepo{FileRepository: files}, blobs, quota, AllowAllPermissions{})
	uc.backoffBase = time.Millisecond

	_, err := uc.Upload(context.Background(), uploadInput("user-1", "notes.txt", 64, "text/plain"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, "METADATA_WRITE_FAILED"))
	assert.Contains(t, err.Error(), "files/user-1/")

	// The blob stays; it is unreachable without a record but not corrupted.
	assert.Equal(t, 1, blobs.blobCount())
}

func TestUploadPermissionDenied(t *testing.T) {
	files := adapter.NewMemoryFileRepository()
	blobs := newFakeBlobStorage()
	quota := NewQuotaUseCase(files, testQuota)
	uc := NewUploadUseCase(files, blobs, quota, denyAllPermissions{})

	_, err := uc.Upload(context.Background(), uploadInput("user-1", "pic.png", 64, "image/png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, "PERMISSION_DENIED"))
	assert.Equal(t, 0, blobs.putCalls)
}

func TestUploadRequiresAuthentication(t *testing.T) {
	uc, _, _, _ := newUploadEnv()

	_, err := uc.Upload(context.Background(), uploadInput("", "pic.png", 64, "image/png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, "NOT_AUTHENTICATED"))
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"my#file[1]*?.txt", "my_file_1___.txt"},
		{"line\nbreak\tname.png", "line_break_name.png"},
		{"  spaced   out  .doc ", "spaced out .doc"},
		{"", "untitled"},
		{"???", "___"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFileName(tc.in), "input %q", tc.in)
	}
}

func TestStoragePathIsDeterministic(t *testing.T) {
	path := StoragePath("owner-1", "file-1", "a b.txt")
	assert.Equal(t, "files/owner-1/file-1/a b.txt", path)
	assert.True(t, strings.HasPrefix(path, "files/owner-1/"))
}
