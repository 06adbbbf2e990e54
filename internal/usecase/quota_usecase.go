package usecase

import (
	"context"
	"sync"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
)

// QuotaUseCase is the per-user storage ledger. The quota is soft: CanAdmit is
// a read-then-compare check with no transaction around the upload that
// follows, so two concurrent uploads from one owner can both pass and jointly
// land over the limit. That is accepted; trash also still counts until a file
// is permanently deleted, because trashed files are recoverable.
type QuotaUseCase struct {
	fileRepo   repository.FileRepository
	limitBytes int64
}

func NewQuotaUseCase(fileRepo repository.FileRepository, limitBytes int64) *QuotaUseCase {
	return &QuotaUseCase{
		fileRepo:   fileRepo,
		limitBytes: limitBytes,
	}
}

func (uc *QuotaUseCase) LimitBytes() int64 {
	return uc.limitBytes
}

func (uc *QuotaUseCase) CurrentUsage(ctx context.Context, ownerID string) (int64, error) {
	return uc.fileRepo.SumSizeByOwner(ctx, ownerID)
}

func (uc *QuotaUseCase) Remaining(ctx context.Context, ownerID string) (int64, error) {
	used, err := uc.CurrentUsage(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	remaining := uc.limitBytes - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// CanAdmit reports whether an upload of candidateBytes fits, and how many
// bytes remain either way.
func (uc *QuotaUseCase) CanAdmit(ctx context.Context, ownerID string, candidateBytes int64) (bool, int64, error) {
	used, err := uc.CurrentUsage(ctx, ownerID)
	if err != nil {
		return false, 0, err
	}
	remaining := uc.limitBytes - used
	if remaining < 0 {
		remaining = 0
	}
	return used+candidateBytes <= uc.limitBytes, remaining, nil
}

// UsageSubscription delivers the owner's usage total at subscribe time and
// after every change to the record set. The caller owns the handle and must
// call Unsubscribe to release the underlying stream.
type UsageSubscription struct {
	inner   repository.Subscription
	updates chan int64
	done    chan struct{}
	once    sync.Once
}

func (uc *QuotaUseCase) SubscribeUsage(ctx context.Context, ownerID string) (*UsageSubscription, error) {
	inner, err := uc.fileRepo.SubscribeOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	sub := &UsageSubscription{
		inner:   inner,
		updates: make(chan int64, 1),
		done:    make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

func (s *UsageSubscription) Updates() <-chan int64 {
	return s.updates
}

func (s *UsageSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.done) })
	s.inner.Unsubscribe()
}

func (s *UsageSubscription) run() {
	defer close(s.updates)
	for rows := range s.inner.Updates() {
		select {
		case s.updates <- totalSize(rows):
		case <-s.done:
			return
		}
	}
}

func totalSize(rows []*entity.FileRecord) int64 {
	var total int64
	for _, row := range rows {
		total += row.Size
	}
	return total
}
