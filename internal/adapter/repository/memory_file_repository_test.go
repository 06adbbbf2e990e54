package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vaultdrive/internal/domain/entity"
)

// Teardown must never race a concurrent notification: a Create landing while
// Unsubscribe runs would previously send on the just-closed updates channel.
func TestMemorySubscriptionUnsubscribeDuringWrites(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		sub, err := repo.SubscribeOwner(ctx, "u1")
		require.NoError(t, err)

		writes := make(chan struct{})
		go func(round int) {
			defer close(writes)
			for j := 0; j < 20; j++ {
				_ = repo.Create(ctx, &entity.FileRecord{
					ID:      fmt.Sprintf("f-%d-%d", round, j),
					OwnerID: "u1",
					Name:    "doc.txt",
					Size:    1,
				})
			}
		}(i)

		sub.Unsubscribe()
		<-writes

		// The channel must be closed and quiet after teardown.
		for range sub.Updates() {
		}
	}
}

func TestMemorySubscriptionDeliversAfterConcurrentUnsubscribeOfSibling(t *testing.T) {
	repo := NewMemoryFileRepository()
	ctx := context.Background()

	keeper, err := repo.SubscribeOwner(ctx, "u1")
	require.NoError(t, err)
	defer keeper.Unsubscribe()

	leaver, err := repo.SubscribeOwner(ctx, "u1")
	require.NoError(t, err)
	leaver.Unsubscribe()

	require.NoError(t, repo.Create(ctx, &entity.FileRecord{
		ID: "f1", OwnerID: "u1", Name: "doc.txt", Size: 1,
	}))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case rows := <-keeper.Updates():
			if len(rows) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("surviving subscription never observed the new record")
		}
	}
}
