package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/facet/pkg/adapters/memory"
	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunAttributeStoreContract(t, store)
}

func TestMemoryFragmentCache_Contract(t *testing.T) {
	cache := memory.NewFragmentCache()
	ports.RunFragmentCacheContract(t, cache)
}

func TestNewStoreFrom_RejectsDuplicateKeys(t *testing.T) {
	ctx := context.Background()
	_, err := memory.NewStoreFrom(ctx,
		domain.Category{Key: "eyes", Colors: []string{"#000"}},
		domain.Category{Key: "eyes", Colors: []string{"#fff"}},
	)
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)
}

func TestNewStoreFrom_KeepsProvidedIDs(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewStoreFrom(ctx, domain.Category{
		ID:         "cat-1",
		Key:        "eyes",
		Variations: []domain.Variation{{ID: "var-1", Name: "round"}},
		Colors:     []string{"#000"},
	})
	require.NoError(t, err)

	found, err := store.FindVariations(ctx, []string{"var-1"})
	require.NoError(t, err)
	assert.Equal(t, "eyes", found[0].CategoryKey)
}

func TestLocker_SerializesSameKey(t *testing.T) {
	locker := memory.NewLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "attr", time.Second)
	require.NoError(t, err)

	// A second caller blocks until timeout
	ctxTimeout, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctxTimeout, "attr", time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// Other keys are independent
	unlockOther, err := locker.Lock(ctx, "other", time.Second)
	require.NoError(t, err)
	require.NoError(t, unlockOther(ctx))

	acquired := make(chan struct{})
	go func() {
		u, err := locker.Lock(ctx, "attr", time.Second)
		if err == nil {
			_ = u(ctx)
		}
		close(acquired)
	}()

	require.NoError(t, unlock(ctx))
	require.NoError(t, unlock(ctx), "unlock is idempotent")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not released")
	}
}
