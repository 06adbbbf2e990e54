package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/pkg/errors"
)

// fakeBlobStorage counts puts and can fail the first N of them, which is how
// the retry budget tests drive transient store errors.
type fakeBlobStorage struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPuts int
	putCalls int
	delCalls int
	urlCalls int
	lastTTL  time.Duration
}

func newFakeBlobStorage() *fakeBlobStorage {
	return &fakeBlobStorage{objects: make(map[string][]byte)}
}

func (f *fakeBlobStorage) Put(ctx context.Context, path string, file io.Reader, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls++
	if f.failPuts > 0 {
		f.failPuts--
		return fmt.Errorf("connection reset")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.objects[path] = data
	return nil
}

func (f *fakeBlobStorage) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.delCalls++
	if _, ok := f.objects[path]; !ok {
		return fmt.Errorf("object not found: %s", path)
	}
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobStorage) SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.urlCalls++
	f.lastTTL = ttl
	return "https://signed.example/" + path, nil
}

func (f *fakeBlobStorage) Close() error {
	return nil
}

func (f *fakeBlobStorage) blobCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// failingCreateRepo forces the metadata write to fail after a successful
// blob upload.
type failingCreateRepo struct {
	repository.FileRepository
}

func (r *failingCreateRepo) Create(ctx context.Context, record *entity.FileRecord) error {
	return errors.Internal("write unavailable", nil)
}

type denyAllPermissions struct{}

func (denyAllPermissions) EnsureUploadAllowed(ctx context.Context, ownerID string, kind entity.FileKind) error {
	return errors.PermissionDenied("Media access not granted", nil)
}

func listAll() repository.ListQuery {
	return repository.ListQuery{
		SortBy:   repository.SortByCreatedAt,
		Dir:      repository.SortAsc,
		PageSize: 100,
	}
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
