// Package syncer reconciles extracted properties against the backing store,
// classifying each as new, updated, or unchanged. Replaying the same record
// any number of times yields the same stored state.
package syncer

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/propscout/propscout/models"
	"github.com/propscout/propscout/storage"
)

// Outcome classifies one reconciliation.
type Outcome string

const (
	OutcomeNew       Outcome = "new"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

const defaultCacheSize = 4096

// Syncer performs dedup/upsert reconciliation keyed by identity key.
type Syncer struct {
	store *storage.Store

	// hashes caches identity key -> snapshot hash so unchanged items are
	// classified without a database read.
	hashes *lru.Cache[string, string]
}

// New creates a Syncer over the backing store.
func New(store *storage.Store) (*Syncer, error) {
	cache, err := lru.New[string, string](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create hash cache: %w", err)
	}
	return &Syncer{store: store, hashes: cache}, nil
}

// Reconcile looks up the property by identity key and writes it if absent or
// changed. Unit rows and image assets are replaced as whole sets inside the
// same transaction as the parent upsert.
func (s *Syncer) Reconcile(ctx context.Context, p *models.Property) (Outcome, error) {
	if p.IdentityKey == "" {
		return "", models.NewScrapeError(models.ErrCodePersistence,
			"property has no identity key", nil)
	}
	hash := p.SnapshotHash()

	if cached, ok := s.hashes.Get(p.IdentityKey); ok && cached == hash {
		return OutcomeUnchanged, nil
	}

	existing, err := s.store.GetPropertyByKey(ctx, p.IdentityKey)
	if err != nil {
		return "", models.NewScrapeError(models.ErrCodePersistence,
			fmt.Sprintf("lookup %s", p.IdentityKey), err)
	}

	if existing != nil && existing.SnapshotHash == hash {
		s.hashes.Add(p.IdentityKey, hash)
		return OutcomeUnchanged, nil
	}

	if _, err := s.store.UpsertProperty(ctx, p, hash); err != nil {
		return "", models.NewScrapeError(models.ErrCodePersistence,
			fmt.Sprintf("upsert %s", p.IdentityKey), err)
	}
	s.hashes.Add(p.IdentityKey, hash)

	if existing == nil {
		slog.Debug("property inserted", "key", p.IdentityKey, "name", p.Name)
		return OutcomeNew, nil
	}
	slog.Debug("property updated", "key", p.IdentityKey, "name", p.Name)
	return OutcomeUpdated, nil
}
