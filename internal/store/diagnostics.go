package store

import (
	"context"
	"fmt"
)

// Stats holds per-collection record counts for operational visibility.
type Stats struct {
	// CachedByCollection maps each reference-data collection to its entry count.
	CachedByCollection map[string]int64

	PendingRecords int64
	PendingMedia   int64
	QueueItems     int64
}

// Stats returns record counts across all store partitions.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	cached, err := s.Cache.CountByCollection(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{CachedByCollection: cached}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_records`).Scan(&stats.PendingRecords); err != nil {
		return nil, fmt.Errorf("failed to count pending records: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_media`).Scan(&stats.PendingMedia); err != nil {
		return nil, fmt.Errorf("failed to count pending media: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&stats.QueueItems); err != nil {
		return nil, fmt.Errorf("failed to count queue items: %w", err)
	}

	return stats, nil
}

// StorageEstimate is a best-effort view of how much space the store occupies
// and how much the host filesystem still offers.
type StorageEstimate struct {
	UsedBytes   int64
	QuotaBytes  int64
	PercentUsed float64
}

// StorageEstimate reports database size from the SQLite page pragmas and the
// filesystem quota from the host, when the platform can report it. Callers
// get a zero QuotaBytes (and zero PercentUsed) when it cannot.
func (s *Store) StorageEstimate(ctx context.Context, dir string) (*StorageEstimate, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to read page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to read page_size: %w", err)
	}

	est := &StorageEstimate{UsedBytes: pageCount * pageSize}

	// Quota lookup is best-effort only.
	if quota, err := fsQuota(dir); err == nil && quota > 0 {
		est.QuotaBytes = quota
		est.PercentUsed = float64(est.UsedBytes) / float64(quota) * 100
	}

	return est, nil
}
