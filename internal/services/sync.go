package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/logging"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/fieldops/fieldsync/internal/remote"
	"github.com/fieldops/fieldsync/internal/repositories/media"
	"github.com/fieldops/fieldsync/internal/repositories/pending"
	"github.com/fieldops/fieldsync/internal/repositories/queue"
	"github.com/fieldops/fieldsync/internal/store"
)

// Orchestrator drains unsynced pending records and the sync queue against the
// remote service. It owns no scheduling: reconnect events, a periodic timer
// or a manual "sync now" invoke Run, and retries ride the next invocation
// rather than any in-process backoff loop.
//
// Per managed record the states are Unsynced -> InFlight -> Synced, with
// InFlight -> Unsynced on retryable failure and no path back from Synced.
type Orchestrator struct {
	records pending.Repository
	media   media.Repository
	queue   queue.Repository
	remote  remote.Client
	log     logging.Logger

	running atomic.Bool
}

func NewOrchestrator(st *store.Store, rc remote.Client, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		records: st.Pending,
		media:   st.Media,
		queue:   st.Queue,
		remote:  rc,
		log:     log,
	}
}

// RunReport summarizes one sync pass.
type RunReport struct {
	RecordsSynced int
	RecordsFailed int
	RecordsParked int
	MediaUploaded int
	QueueDone     int
	QueueFailed   int
}

// recordEnvelope is the request body for an offline-authored record: the
// domain payload plus checklist completions in their array shape, tagged with
// the temp id the server uses as idempotency key.
type recordEnvelope struct {
	TempID      string          `json:"tempId"`
	Payload     json.RawMessage `json:"payload"`
	Completions json.RawMessage `json:"completions"`
}

// Run executes one sync pass over a snapshot of unsynced records and pending
// queue items taken at invocation time. Records created mid-run are picked up
// on the next invocation, which bounds run time under sustained write
// pressure. A second Run while one is draining returns ErrSyncInProgress so
// callers coalesce triggers instead of double-submitting.
//
// A crash between a successful remote call and the local MarkSynced causes a
// redundant resubmission next run; the remote dedupes it by the temp id.
func (o *Orchestrator) Run(ctx context.Context) (*RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, common.ErrSyncInProgress
	}
	defer o.running.Store(false)

	report := &RunReport{}

	// Items left in_flight by a crashed process have no owner anymore; move
	// them back to pending so this snapshot redelivers them. The remote
	// dedupes by idempotency key if the crashed attempt actually landed.
	if n, err := o.queue.ResetInFlight(ctx); err != nil {
		return nil, fmt.Errorf("failed to recover in-flight queue items: %w", err)
	} else if n > 0 {
		o.log.Warn(ctx, "recovered abandoned in-flight queue items", "count", n)
	}

	records, err := o.records.ListUnsynced(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot unsynced records: %w", err)
	}
	items, err := o.queue.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot sync queue: %w", err)
	}

	o.log.Info(ctx, "sync pass started", "records", len(records), "queueItems", len(items))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		o.syncRecord(ctx, rec, report)
	}

	o.syncMedia(ctx, report)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		o.syncQueueItem(ctx, item, report)
	}

	o.log.Info(ctx, "sync pass finished",
		"synced", report.RecordsSynced, "failed", report.RecordsFailed,
		"parked", report.RecordsParked, "media", report.MediaUploaded,
		"queueDone", report.QueueDone, "queueFailed", report.QueueFailed)

	return report, nil
}

func (o *Orchestrator) syncRecord(ctx context.Context, rec *models.PendingRecord, report *RunReport) {
	completions, err := rec.Completions.MarshalArray()
	if err != nil {
		o.log.Error(ctx, "failed to serialize record", "tempId", rec.TempID, "error", err)
		report.RecordsFailed++
		return
	}

	body, err := json.Marshal(recordEnvelope{
		TempID:      rec.TempID,
		Payload:     rec.Payload,
		Completions: completions,
	})
	if err != nil {
		o.log.Error(ctx, "failed to serialize record", "tempId", rec.TempID, "error", err)
		report.RecordsFailed++
		return
	}

	serverID, err := o.remote.CreateRecord(ctx, rec.Collection, body, rec.TempID)
	if err != nil {
		o.recordFailure(ctx, rec, err, report)
		return
	}

	if err := o.records.MarkSynced(ctx, rec.TempID, serverID, time.Now()); err != nil {
		// Remote accepted but the local write failed; the next run resubmits
		// and the server dedupes by temp id.
		o.log.Error(ctx, "failed to mark record synced", "tempId", rec.TempID, "error", err)
		report.RecordsFailed++
		return
	}

	o.log.Debug(ctx, "record synced", "tempId", rec.TempID, "serverId", serverID)
	report.RecordsSynced++
}

func (o *Orchestrator) recordFailure(ctx context.Context, rec *models.PendingRecord, err error, report *RunReport) {
	terminal := errors.Is(err, common.ErrTerminal)

	if markErr := o.records.MarkFailed(ctx, rec.TempID, err.Error(), terminal); markErr != nil {
		o.log.Error(ctx, "failed to record sync failure", "tempId", rec.TempID, "error", markErr)
	}

	if terminal {
		o.log.Warn(ctx, "record parked with terminal error", "tempId", rec.TempID, "error", err)
		report.RecordsParked++
		return
	}

	o.log.Debug(ctx, "record left for next run", "tempId", rec.TempID, "error", err)
	report.RecordsFailed++
}

// syncMedia uploads every unsynced attachment whose parent record already has
// a server id. That covers media attached just before this run's record sync
// as well as media left behind when an earlier upload failed after the parent
// was marked synced.
func (o *Orchestrator) syncMedia(ctx context.Context, report *RunReport) {
	attachments, err := o.media.ListUnsynced(ctx)
	if err != nil {
		o.log.Error(ctx, "failed to list unsynced media", "error", err)
		return
	}

	for _, m := range attachments {
		rec, err := o.records.GetByTempID(ctx, m.RecordTempID)
		if err != nil {
			o.log.Warn(ctx, "media without parent record skipped", "mediaId", m.ID, "tempId", m.RecordTempID)
			continue
		}
		if !rec.Synced {
			// Uploaded once the parent record has a server id.
			continue
		}

		if err := o.remote.UploadMedia(ctx, rec.ServerID, m); err != nil {
			o.log.Warn(ctx, "media upload failed, left for next run", "mediaId", m.ID, "error", err)
			continue
		}
		if err := o.media.MarkSynced(ctx, m.ID); err != nil {
			o.log.Error(ctx, "failed to mark media synced", "mediaId", m.ID, "error", err)
			continue
		}
		report.MediaUploaded++
	}
}

func (o *Orchestrator) syncQueueItem(ctx context.Context, item *models.QueueItem, report *RunReport) {
	var op models.QueueOperation
	if err := json.Unmarshal(item.Operation, &op); err != nil {
		o.log.Warn(ctx, "queue item with invalid operation parked", "id", item.ID, "error", err)
		if updErr := o.queue.UpdateStatus(ctx, item.ID, models.QueueStatusFailed, "invalid operation: "+err.Error()); updErr != nil {
			o.log.Error(ctx, "failed to update queue item", "id", item.ID, "error", updErr)
		}
		report.QueueFailed++
		return
	}

	if err := o.queue.UpdateStatus(ctx, item.ID, models.QueueStatusInFlight, ""); err != nil {
		o.log.Error(ctx, "failed to update queue item", "id", item.ID, "error", err)
		return
	}

	err := o.remote.Execute(ctx, op, fmt.Sprintf("q-%d", item.ID))
	if err == nil {
		if err := o.queue.Remove(ctx, item.ID); err != nil {
			o.log.Error(ctx, "failed to remove completed queue item", "id", item.ID, "error", err)
			return
		}
		report.QueueDone++
		return
	}

	status := models.QueueStatusPending
	if errors.Is(err, common.ErrTerminal) {
		status = models.QueueStatusFailed
	}
	if updErr := o.queue.UpdateStatus(ctx, item.ID, status, err.Error()); updErr != nil {
		o.log.Error(ctx, "failed to update queue item", "id", item.ID, "error", updErr)
	}
	report.QueueFailed++
}
