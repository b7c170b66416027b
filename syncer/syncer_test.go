package syncer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propscout/propscout/models"
	"github.com/propscout/propscout/storage"
)

func newTestSyncer(t *testing.T) (*Syncer, *storage.Store) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s, err := New(store)
	require.NoError(t, err)
	return s, store
}

func sampleProperty(key string) *models.Property {
	return &models.Property{
		IdentityKey: key,
		Name:        "The Continuum",
		Category:    "Condominium",
		District:    "D15",
		Address:     "Thiam Siew Avenue",
		UnitRows: []models.UnitRow{
			{TypeLabel: "1 Bedroom", Bedrooms: 1, UnitsAvailable: 12, UnitsTotal: 40},
		},
		Images: []models.ImageAsset{
			{Label: "Site Plan", SourceURL: "https://example.com/img/sp.jpg", Fetchable: true},
		},
		ScrapedAt: time.Now().UTC(),
	}
}

func TestReconcileNewThenUnchanged(t *testing.T) {
	s, store := newTestSyncer(t)
	ctx := context.Background()
	p := sampleProperty("https://example.com/projects/the-continuum")

	out, err := s.Reconcile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNew, out)

	out, err = s.Reconcile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)

	n, err := store.CountProperties(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcileDetectsUpdate(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()
	key := "https://example.com/projects/the-continuum"

	_, err := s.Reconcile(ctx, sampleProperty(key))
	require.NoError(t, err)

	changed := sampleProperty(key)
	changed.UnitRows[0].UnitsAvailable = 9

	out, err := s.Reconcile(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, out)

	// Replaying the changed record converges to unchanged.
	out, err = s.Reconcile(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)
}

func TestReconcileStoredSnapshotMatches(t *testing.T) {
	s, store := newTestSyncer(t)
	ctx := context.Background()
	p := sampleProperty("https://example.com/projects/the-continuum")

	_, err := s.Reconcile(ctx, p)
	require.NoError(t, err)

	rec, err := store.GetPropertyByKey(ctx, p.IdentityKey)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, p.SnapshotHash(), rec.SnapshotHash)

	rows, err := store.GetUnitRows(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, p.UnitRows, rows)
}

func TestReconcileScrapedAtDoesNotDirty(t *testing.T) {
	s, _ := newTestSyncer(t)
	ctx := context.Background()
	key := "https://example.com/projects/the-continuum"

	_, err := s.Reconcile(ctx, sampleProperty(key))
	require.NoError(t, err)

	later := sampleProperty(key)
	later.ScrapedAt = later.ScrapedAt.Add(time.Hour)

	out, err := s.Reconcile(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, out)
}

func TestReconcileMissingIdentityKey(t *testing.T) {
	s, _ := newTestSyncer(t)
	p := sampleProperty("")

	_, err := s.Reconcile(context.Background(), p)
	require.Error(t, err)

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrCodePersistence, se.Code)
}
