package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scanbridge/card-services/internal/cardsvc/config"
	"github.com/scanbridge/card-services/internal/cardsvc/models"
	"github.com/scanbridge/card-services/internal/kv"
)

func newTestStore(t *testing.T) (*CardStore, *kv.MemoryStore) {
	t.Helper()
	mem := kv.NewMemoryStore()
	s := NewCardStore(mem, config.DefaultImageMaxBytes, config.DefaultOwnerQuota)

	// deterministic, strictly increasing timestamps
	var tick int64
	base := time.Now()
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	return s, mem
}

func TestCreate_RequiresImageAndOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Create(ctx, "Ana", "Acme", "", "owner-1")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = s.Create(ctx, "Ana", "Acme", "img", "")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreate_AppliesDefaults(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	card, err := s.Create(ctx, "", "", "img", "owner-1")
	require.NoError(t, err)
	require.Equal(t, "Sin nombre", card.Name)
	require.Equal(t, "Empresa", card.Company)
	require.NotEmpty(t, card.ID)
	require.NotZero(t, card.CreatedAt)
}

func TestCreate_RejectsOversizedImage(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := NewCardStore(mem, 64, config.DefaultOwnerQuota)

	_, err := s.Create(ctx, "Ana", "Acme", strings.Repeat("x", 65), "owner-1")
	require.ErrorIs(t, err, models.ErrPayloadTooLarge)

	// at the cap is fine
	_, err = s.Create(ctx, "Ana", "Acme", strings.Repeat("x", 64), "owner-1")
	require.NoError(t, err)
}

func TestCreate_EnforcesOwnerQuota(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < config.DefaultOwnerQuota; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("card %d", i), "Acme", "img", "owner-1")
		require.NoError(t, err)
	}

	_, err := s.Create(ctx, "one too many", "Acme", "img", "owner-1")
	require.ErrorIs(t, err, models.ErrQuotaExceeded)

	cards, err := s.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cards, config.DefaultOwnerQuota)

	// the quota is per owner, another owner still creates fine
	_, err = s.Create(ctx, "other", "Acme", "img", "owner-2")
	require.NoError(t, err)
}

func TestCreate_IDsAreUnique(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	ids := map[string]bool{}
	for i := 0; i < config.DefaultOwnerQuota; i++ {
		card, err := s.Create(ctx, "n", "c", "img", "owner-1")
		require.NoError(t, err)
		require.False(t, ids[card.ID], "id %s reused", card.ID)
		ids[card.ID] = true
	}
}

func TestGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	created, err := s.Create(ctx, "Ana", "Acme", "img-data", "owner-1")
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created, got)
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Get(ctx, "nope")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGet_CorruptPayloadIsNotFound(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	err := mem.Put(ctx, "card:broken", []byte("{not json"), map[string]string{"ownerId": "owner-1"})
	require.NoError(t, err)

	_, err = s.Get(ctx, "broken")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestListByOwner_RequiresOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.ListByOwner(ctx, "")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestListByOwner_FiltersAndOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("mine %d", i), "Acme", "img", "owner-1")
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "not mine", "Acme", "img", "owner-2")
	require.NoError(t, err)

	cards, err := s.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cards, 5)
	for i, card := range cards {
		require.Equal(t, "owner-1", card.OwnerID)
		if i > 0 {
			require.GreaterOrEqual(t, cards[i-1].CreatedAt, card.CreatedAt)
		}
	}
	require.Equal(t, "mine 4", cards[0].Name)
}

func TestListByOwner_DrainsAllPages(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.ownerQuota = 100
	s.listLimit = 4 // force multiple scan pages

	for i := 0; i < 11; i++ {
		_, err := s.Create(ctx, fmt.Sprintf("card %d", i), "Acme", "img", "owner-1")
		require.NoError(t, err)
	}

	cards, err := s.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cards, 11)
}

func TestListByOwner_SkipsCorruptRecords(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t)

	_, err := s.Create(ctx, "good", "Acme", "img", "owner-1")
	require.NoError(t, err)
	err = mem.Put(ctx, "card:bad", []byte("{not json"), map[string]string{"ownerId": "owner-1"})
	require.NoError(t, err)

	cards, err := s.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "good", cards[0].Name)
}

func TestDelete_ByOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	card, err := s.Create(ctx, "Ana", "Acme", "img", "owner-1")
	require.NoError(t, err)

	removed, err := s.Delete(ctx, card.ID, "owner-1")
	require.NoError(t, err)
	require.True(t, removed)

	_, err = s.Get(ctx, card.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDelete_RequiresOwnerID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.Delete(ctx, "whatever", "")
	require.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestDelete_WrongOwnerIsForbidden(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	card, err := s.Create(ctx, "Ana", "Acme", "img", "owner-1")
	require.NoError(t, err)

	_, err = s.Delete(ctx, card.ID, "owner-2")
	require.ErrorIs(t, err, models.ErrForbidden)

	// still retrievable
	got, err := s.Get(ctx, card.ID)
	require.NoError(t, err)
	require.Equal(t, card.ID, got.ID)
}

func TestDelete_MissingCardIsSilentSuccess(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	// succeeds but reports nothing was removed, so no event is announced
	removed, err := s.Delete(ctx, "never-existed", "owner-1")
	require.NoError(t, err)
	require.False(t, removed)
}

func TestCountByOwner_DrainsAllPages(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.ownerQuota = 100
	s.listLimit = 3

	for i := 0; i < 8; i++ {
		_, err := s.Create(ctx, "n", "c", "img", "owner-1")
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "n", "c", "img", "owner-2")
	require.NoError(t, err)

	count, err := s.countByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Equal(t, 8, count)
}
