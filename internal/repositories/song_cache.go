package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/melodex/internal/models"
	"github.com/desertthunder/melodex/internal/shared"
)

// SongCacheAdapter implements tasks.SongCacher using a [models.SongStore].
//
// Provides catalog inserts with deduplication on the external song_id.
// Songs whose song_id is already present are skipped rather than duplicated.
type SongCacheAdapter struct {
	repo models.SongStore
}

// NewSongCacheAdapter creates a new SongCacheAdapter with the given store
func NewSongCacheAdapter(repo models.SongStore) *SongCacheAdapter {
	return &SongCacheAdapter{repo: repo}
}

// CacheSong inserts song unless one with the same song_id exists.
// Reports whether a new row was created; only actual failures are returned as errors.
func (a *SongCacheAdapter) CacheSong(ctx context.Context, song *models.Song) (bool, error) {
	existing, err := a.repo.GetBySongID(ctx, song.SongID)
	if err == nil && existing != nil {
		*song = *existing
		return false, nil
	}
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return false, fmt.Errorf("failed to look up song %s: %w", song.SongID, err)
	}

	if err := a.repo.Create(ctx, song); err != nil {
		return false, fmt.Errorf("failed to cache song: %w", err)
	}

	return true, nil
}
