package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rightskeeper/internal/domain"
)

type catalogHarness struct {
	catalog    *Catalog
	recordings *memRecordingStore
	files      *fakeFileStore
	deletions  *memDeletionQueue
	clock      *fakeClock
}

func newCatalogHarness(t *testing.T) *catalogHarness {
	h := &catalogHarness{
		recordings: newMemRecordingStore(),
		files:      newFakeFileStore(),
		deletions:  &memDeletionQueue{},
		clock:      newFakeClock(),
	}
	h.catalog = NewCatalog(h.recordings, h.files, h.deletions, zaptest.NewLogger(t))
	h.catalog.now = h.clock.Now
	return h
}

func (h *catalogHarness) create(t *testing.T, filename string) domain.Recording {
	t.Helper()
	h.files.put(filename, h.clock.Now())
	rec, err := h.catalog.Create(context.Background(), filename, time.Second)
	require.NoError(t, err)
	return rec
}

func TestCatalogListNewestFirst(t *testing.T) {
	h := newCatalogHarness(t)

	r1 := h.create(t, "evidence_1.m4a")
	h.clock.Advance(time.Second)
	r2 := h.create(t, "evidence_2.m4a")
	h.clock.Advance(time.Second)
	r3 := h.create(t, "evidence_3.m4a")

	for i := 0; i < 2; i++ {
		list, err := h.catalog.List(context.Background())
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{r3.ID, r2.ID, r1.ID}, []string{list[0].ID, list[1].ID, list[2].ID})
	}
}

func TestCatalogCreateValidates(t *testing.T) {
	h := newCatalogHarness(t)
	ctx := context.Background()

	var vErr *domain.ValidationError
	_, err := h.catalog.Create(ctx, "", time.Second)
	assert.True(t, errors.As(err, &vErr))

	_, err = h.catalog.Create(ctx, "evidence_1.m4a", -time.Second)
	assert.True(t, errors.As(err, &vErr))

	_, err = h.catalog.Create(ctx, "../evidence_1.m4a", time.Second)
	assert.True(t, errors.As(err, &vErr))
}

func TestCatalogCreateWrapsStoreFailure(t *testing.T) {
	h := newCatalogHarness(t)
	h.recordings.insertErr = errors.New("database is locked")

	_, err := h.catalog.Create(context.Background(), "evidence_1.m4a", time.Second)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestCatalogDeleteRemovesFileAndEntry(t *testing.T) {
	h := newCatalogHarness(t)
	rec := h.create(t, "evidence_1.m4a")

	require.NoError(t, h.catalog.Delete(context.Background(), rec.ID))

	assert.False(t, h.files.has("evidence_1.m4a"))
	list, err := h.catalog.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)

	pending, _ := h.deletions.Pending(context.Background())
	assert.Empty(t, pending)
}

func TestCatalogDeleteSurvivesFileFailure(t *testing.T) {
	h := newCatalogHarness(t)
	keep := h.create(t, "evidence_1.m4a")
	gone := h.create(t, "evidence_2.m4a")
	h.files.removeErr = errors.New("permission denied")

	require.NoError(t, h.catalog.Delete(context.Background(), gone.ID))

	list, err := h.catalog.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	pending, _ := h.deletions.Pending(context.Background())
	assert.Equal(t, []string{"evidence_2.m4a"}, pending)
}

func TestCatalogDeleteKeepsRowWhenQueueFails(t *testing.T) {
	h := newCatalogHarness(t)
	rec := h.create(t, "evidence_1.m4a")
	h.files.removeErr = errors.New("permission denied")
	h.deletions.enqueueErr = errors.New("disk I/O error")

	err := h.catalog.Delete(context.Background(), rec.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	got, err := h.catalog.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "evidence_1.m4a", got.Filename)

	h.deletions.enqueueErr = nil
	require.NoError(t, h.catalog.Delete(context.Background(), rec.ID))
	pending, _ := h.deletions.Pending(context.Background())
	assert.Equal(t, []string{"evidence_1.m4a"}, pending)
}

func TestCatalogDeleteMissingFileIsFine(t *testing.T) {
	h := newCatalogHarness(t)
	rec, err := h.catalog.Create(context.Background(), "evidence_never_written.m4a", 0)
	require.NoError(t, err)

	require.NoError(t, h.catalog.Delete(context.Background(), rec.ID))
	assert.ErrorIs(t, h.catalog.Delete(context.Background(), rec.ID), domain.ErrNotFound)
}

func TestCatalogRename(t *testing.T) {
	h := newCatalogHarness(t)
	rec := h.create(t, "evidence_1.m4a")
	ctx := context.Background()

	renamed, err := h.catalog.Rename(ctx, rec.ID, "  Border crossing  ")
	require.NoError(t, err)
	require.NotNil(t, renamed.CustomName)
	assert.Equal(t, "Border crossing", renamed.DisplayName())

	cleared, err := h.catalog.Rename(ctx, rec.ID, " ")
	require.NoError(t, err)
	assert.Nil(t, cleared.CustomName)
	assert.Equal(t, "Nov 20, 2025 at 10:00 AM", cleared.DisplayName())

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	_, err = h.catalog.Rename(ctx, rec.ID, string(long))
	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = h.catalog.Rename(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
