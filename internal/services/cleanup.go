package services

import (
	"context"
	"time"

	"github.com/fieldops/fieldsync/internal/logging"
	"github.com/fieldops/fieldsync/internal/repositories/pending"
	"github.com/fieldops/fieldsync/internal/store"
)

// CleanupService bounds storage growth by purging successfully synced records
// past the retention window. It runs opportunistically (app start), not on a
// schedule. Unsynced records are never removed regardless of age: losing
// un-uploaded user work is worse than unbounded growth. Media rows are not
// touched either; their synced flag is the only lifecycle transition.
type CleanupService struct {
	records pending.Repository
	log     logging.Logger
}

func NewCleanupService(st *store.Store, log logging.Logger) *CleanupService {
	return &CleanupService{records: st.Pending, log: log}
}

// CleanupSynced deletes records with synced=true and a sync time older than
// retentionDays, returning how many were removed.
func (s *CleanupService) CleanupSynced(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	n, err := s.records.DeleteSyncedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info(ctx, "retired synced records", "count", n, "retentionDays", retentionDays)
	}
	return n, nil
}
