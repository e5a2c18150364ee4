package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/logging"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/fieldops/fieldsync/internal/repositories/media"
	"github.com/fieldops/fieldsync/internal/repositories/pending"
	"github.com/fieldops/fieldsync/internal/store"
)

// PendingService owns offline-authored work: records captured while
// disconnected (or speculatively) and their media attachments. Records are
// keyed by a locally generated temp id until the orchestrator reconciles them
// with server-assigned ids.
//
// These stores are inherently single-session-scoped; switching the active
// user or organization requires the caller to wipe them via the store
// lifecycle hooks.
type PendingService struct {
	records pending.Repository
	media   media.Repository
	log     logging.Logger
}

func NewPendingService(st *store.Store, log logging.Logger) *PendingService {
	return &PendingService{records: st.Pending, media: st.Media, log: log}
}

// Create stores a new pending record and returns its temp id synchronously,
// so the caller can attach media before any network round trip.
func (s *PendingService) Create(ctx context.Context, collection string, payload json.RawMessage) (string, error) {
	rec := &models.PendingRecord{
		TempID:      models.NewTempID(),
		Collection:  collection,
		Payload:     payload,
		Completions: models.CompletionSet{},
		CreatedAt:   time.Now(),
	}

	if err := s.records.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("saving error: %w", err)
	}
	return rec.TempID, nil
}

// Get returns a pending record by temp id.
func (s *PendingService) Get(ctx context.Context, tempID string) (*models.PendingRecord, error) {
	return s.records.GetByTempID(ctx, tempID)
}

// UpdateSubItem merges a checklist completion into a record, replacing any
// prior completion for the same sub-item id. An unknown temp id is a silent
// no-op: the caller is expected to have just created the record, and a form
// racing its own teardown must not surface an error.
//
// The read-merge-write is not transactional; two concurrent calls for the
// same temp id can lose one update. Acceptable under the single active
// editor per record assumption.
func (s *PendingService) UpdateSubItem(ctx context.Context, tempID string, c models.SubItemCompletion) error {
	rec, err := s.records.GetByTempID(ctx, tempID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.log.Debug(ctx, "sub-item update for unknown record ignored", "tempId", tempID)
			return nil
		}
		return err
	}

	rec.Completions.Merge(c)
	data, err := rec.Completions.MarshalArray()
	if err != nil {
		return fmt.Errorf("failed to serialize completions: %w", err)
	}

	if err := s.records.UpdateCompletions(ctx, tempID, data); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// AttachMedia stores a binary attachment for a pending record and returns its id.
func (s *PendingService) AttachMedia(ctx context.Context, tempID, fileName, contentType string, data []byte) (int64, error) {
	m := &models.PendingMedia{
		RecordTempID: tempID,
		FileName:     fileName,
		ContentType:  contentType,
		Data:         data,
		CreatedAt:    time.Now(),
	}
	id, err := s.media.Insert(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("saving error: %w", err)
	}
	return id, nil
}

// ListUnsynced returns unsynced records of a collection (or all collections
// when empty), oldest first.
func (s *PendingService) ListUnsynced(ctx context.Context, collection string) ([]*models.PendingRecord, error) {
	return s.records.ListUnsynced(ctx, collection)
}

// MarkSynced is the single reconciliation point between temp and server ids.
// After it returns, any later lookup by temp id resolves to the same server id.
func (s *PendingService) MarkSynced(ctx context.Context, tempID, serverID string) error {
	return s.records.MarkSynced(ctx, tempID, serverID, time.Now())
}

// Summary is what the UI surfaces so the user knows what still needs
// attention. Transient retry state is deliberately absent.
type Summary struct {
	UnsyncedRecords int64
	TerminalRecords int64
	UnsyncedMedia   int64
}

func (s *PendingService) Summary(ctx context.Context) (*Summary, error) {
	unsynced, err := s.records.CountUnsynced(ctx)
	if err != nil {
		return nil, err
	}
	terminal, err := s.records.CountTerminal(ctx)
	if err != nil {
		return nil, err
	}
	mediaCount, err := s.media.CountUnsynced(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{
		UnsyncedRecords: unsynced,
		TerminalRecords: terminal,
		UnsyncedMedia:   mediaCount,
	}, nil
}

// ListTerminal returns records parked with a terminal error for manual
// resolution in the UI.
func (s *PendingService) ListTerminal(ctx context.Context) ([]*models.PendingRecord, error) {
	return s.records.ListTerminal(ctx)
}
