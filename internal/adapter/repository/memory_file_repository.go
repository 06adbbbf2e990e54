package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"vaultdrive/internal/domain/entity"
	"vaultdrive/internal/domain/repository"
	"vaultdrive/pkg/cursor"
	"vaultdrive/pkg/errors"
)

// MemoryFileRepository is a map-backed FileRepository with the same ordering
// and cursor semantics as the real backends. Tests use it; it also serves as
// the executable definition of the paging contract.
type MemoryFileRepository struct {
	mu      sync.RWMutex
	records map[string]*entity.FileRecord
	subs    map[int]*memorySubscription
	nextSub int
}

func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{
		records: make(map[string]*entity.FileRecord),
		subs:    make(map[int]*memorySubscription),
	}
}

func (r *MemoryFileRepository) Create(ctx context.Context, record *entity.FileRecord) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	r.mu.Lock()
	clone := *record
	r.records[record.ID] = &clone
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *MemoryFileRepository) GetByID(ctx context.Context, id string) (*entity.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, errors.NotFound("File", nil)
	}
	clone := *record
	return &clone, nil
}

func (r *MemoryFileRepository) Update(ctx context.Context, record *entity.FileRecord) error {
	r.mu.Lock()
	if _, ok := r.records[record.ID]; !ok {
		r.mu.Unlock()
		return errors.NotFound("File", nil)
	}
	record.UpdatedAt = time.Now()
	clone := *record
	r.records[record.ID] = &clone
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *MemoryFileRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if _, ok := r.records[id]; !ok {
		r.mu.Unlock()
		return errors.NotFound("File", nil)
	}
	delete(r.records, id)
	r.mu.Unlock()

	r.notify()
	return nil
}

func (r *MemoryFileRepository) ListPage(ctx context.Context, ownerID string, q repository.ListQuery) ([]*entity.FileRecord, bool, error) {
	r.mu.RLock()
	var matched []*entity.FileRecord
	for _, record := range r.records {
		if record.OwnerID != ownerID {
			continue
		}
		if q.Starred != nil && record.Starred != *q.Starred {
			continue
		}
		if q.Trashed != nil && record.Trashed != *q.Trashed {
			continue
		}
		clone := *record
		matched = append(matched, &clone)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return lessInOrder(matched[i], matched[j], q.SortBy, q.Dir)
	})

	if q.After != nil {
		start := 0
		for start < len(matched) && !afterPosition(matched[start], q.After, q.SortBy, q.Dir) {
			start++
		}
		matched = matched[start:]
	}

	hasMore := len(matched) > q.PageSize
	if hasMore {
		matched = matched[:q.PageSize]
	}
	return matched, hasMore, nil
}

func (r *MemoryFileRepository) SumSizeByOwner(ctx context.Context, ownerID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total int64
	for _, record := range r.records {
		if record.OwnerID == ownerID {
			total += record.Size
		}
	}
	return total, nil
}

func (r *MemoryFileRepository) SubscribeOwner(ctx context.Context, ownerID string) (repository.Subscription, error) {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	sub := &memorySubscription{
		repo:    r,
		id:      id,
		ownerID: ownerID,
		updates: make(chan []*entity.FileRecord, 16),
	}
	r.subs[id] = sub
	r.mu.Unlock()

	sub.push()
	return sub, nil
}

func (r *MemoryFileRepository) notify() {
	r.mu.RLock()
	subs := make([]*memorySubscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.RUnlock()

	for _, sub := range subs {
		sub.push()
	}
}

type memorySubscription struct {
	repo    *MemoryFileRepository
	id      int
	ownerID string
	updates chan []*entity.FileRecord

	closeOnce sync.Once
}

func (s *memorySubscription) Updates() <-chan []*entity.FileRecord {
	return s.updates
}

func (s *memorySubscription) Unsubscribe() {
	// Removal and close are ordered by the repo lock: every send in push
	// happens under RLock after a membership check, so once the sub is gone
	// no send can follow and closing outside the lock is safe.
	s.repo.mu.Lock()
	delete(s.repo.subs, s.id)
	s.repo.mu.Unlock()
	s.closeOnce.Do(func() { close(s.updates) })
}

func (s *memorySubscription) push() {
	s.repo.mu.RLock()
	defer s.repo.mu.RUnlock()

	if _, live := s.repo.subs[s.id]; !live {
		return
	}
	var rows []*entity.FileRecord
	for _, record := range s.repo.records {
		if record.OwnerID == s.ownerID {
			clone := *record
			rows = append(rows, &clone)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		return lessInOrder(rows[i], rows[j], repository.SortByCreatedAt, repository.SortAsc)
	})

	select {
	case s.updates <- rows:
	default:
		// Drop when the consumer lags; the next change delivers fresh state.
	}
}

// lessInOrder is the canonical listing order: sort key in the requested
// direction, ties broken by id ascending.
func lessInOrder(a, b *entity.FileRecord, key repository.SortKey, dir repository.SortDir) bool {
	c := compareSortValues(a, b, key)
	if c != 0 {
		if dir == repository.SortDesc {
			return c > 0
		}
		return c < 0
	}
	return a.ID < b.ID
}

func compareSortValues(a, b *entity.FileRecord, key repository.SortKey) int {
	if key == repository.SortByCreatedAt {
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.Name, b.Name)
}

// afterPosition reports whether the record sits strictly after the cursor
// position in the given ordering.
func afterPosition(record *entity.FileRecord, after *cursor.Payload, key repository.SortKey, dir repository.SortDir) bool {
	c := compareToCursor(record, after, key)
	if dir == repository.SortDesc {
		c = -c
	}
	if c != 0 {
		return c > 0
	}
	if after.ID == "" {
		// Bare sort value: everything equal to it is "at" the position.
		return false
	}
	return record.ID > after.ID
}

func compareToCursor(record *entity.FileRecord, after *cursor.Payload, key repository.SortKey) int {
	if key == repository.SortByCreatedAt {
		if t, ok := repository.AfterValue(after, key).(time.Time); ok {
			switch {
			case record.CreatedAt.Before(t):
				return -1
			case record.CreatedAt.After(t):
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(repository.SortValueOf(record, key), after.SortValue)
}
