package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrchestrator_SyncsRecordsAndMedia(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	pendingSvc := NewPendingService(st, discardLogger())

	tempID, err := pendingSvc.Create(ctx, "inspections", json.RawMessage(`{"assetId":"s1"}`))
	require.NoError(t, err)
	_, err = pendingSvc.AttachMedia(ctx, tempID, "leak.jpg", "image/jpeg", []byte{1, 2, 3})
	require.NoError(t, err)

	rc := &fakeRemote{CreateID: "srv-100"}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecordsSynced)
	assert.Equal(t, 1, report.MediaUploaded)
	assert.Zero(t, report.RecordsFailed)

	rec, err := pendingSvc.Get(ctx, tempID)
	require.NoError(t, err)
	assert.True(t, rec.Synced)
	assert.Equal(t, "srv-100", rec.ServerID)

	require.Equal(t, []string{tempID}, rc.CreateKeys, "temp id doubles as idempotency key")
	assert.Equal(t, []string{"leak.jpg"}, rc.Uploaded)

	n, err := st.Media.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrchestrator_RetryableFailureLeavesRecordForNextRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	pendingSvc := NewPendingService(st, discardLogger())

	tempID, err := pendingSvc.Create(ctx, "inspections", json.RawMessage(`{}`))
	require.NoError(t, err)

	rc := &fakeRemote{CreateErr: fmt.Errorf("status 503: %w", common.ErrRetryable)}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecordsFailed)
	assert.Zero(t, report.RecordsParked)

	rec, err := pendingSvc.Get(ctx, tempID)
	require.NoError(t, err)
	assert.False(t, rec.Synced)
	assert.False(t, rec.Terminal)
	assert.Contains(t, rec.LastError, "503")

	// Still eligible for the next pass.
	unsynced, err := pendingSvc.ListUnsynced(ctx, "")
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
}

func TestOrchestrator_TerminalFailureParksRecord(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	pendingSvc := NewPendingService(st, discardLogger())

	tempID, err := pendingSvc.Create(ctx, "inspections", json.RawMessage(`{}`))
	require.NoError(t, err)

	rc := &fakeRemote{CreateErr: fmt.Errorf("status 422: %w", common.ErrTerminal)}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecordsParked)

	rec, err := pendingSvc.Get(ctx, tempID)
	require.NoError(t, err)
	assert.True(t, rec.Terminal)
	assert.False(t, rec.Synced)

	// Parked records are excluded from later passes, no retry storm.
	unsynced, err := pendingSvc.ListUnsynced(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, unsynced)
}

func TestOrchestrator_MediaWaitsForParentRecord(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	pendingSvc := NewPendingService(st, discardLogger())

	tempID, err := pendingSvc.Create(ctx, "inspections", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = pendingSvc.AttachMedia(ctx, tempID, "a.jpg", "image/jpeg", []byte{1})
	require.NoError(t, err)

	rc := &fakeRemote{CreateErr: fmt.Errorf("offline: %w", common.ErrRetryable)}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.MediaUploaded, "no upload while the parent has no server id")

	n, err := st.Media.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestOrchestrator_DrainsQueue(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	op, err := json.Marshal(models.QueueOperation{Method: "PUT", Collection: "assets", EntityID: "s1"})
	require.NoError(t, err)
	_, err = st.Queue.Enqueue(ctx, op)
	require.NoError(t, err)

	rc := &fakeRemote{}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.QueueDone)
	require.Len(t, rc.ExecCalls, 1)
	assert.Equal(t, "PUT", rc.ExecCalls[0].Method)

	n, err := st.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "completed items are removed")
}

func TestOrchestrator_QueueRetryableStaysPending(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	op, _ := json.Marshal(models.QueueOperation{Method: "DELETE", Collection: "assets", EntityID: "s1"})
	id, err := st.Queue.Enqueue(ctx, op)
	require.NoError(t, err)

	rc := &fakeRemote{ExecErr: fmt.Errorf("timeout: %w", common.ErrRetryable)}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.QueueFailed)

	item, err := st.Queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusPending, item.Status)
	assert.Contains(t, item.Error, "timeout")
	assert.Positive(t, item.RetryCount)
}

func TestOrchestrator_QueueTerminalIsParked(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	op, _ := json.Marshal(models.QueueOperation{Method: "PATCH", Collection: "assets", EntityID: "gone"})
	id, err := st.Queue.Enqueue(ctx, op)
	require.NoError(t, err)

	rc := &fakeRemote{ExecErr: fmt.Errorf("status 404: %w", common.ErrTerminal)}
	o := NewOrchestrator(st, rc, discardLogger())

	_, err = o.Run(ctx)
	require.NoError(t, err)

	item, err := st.Queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, item.Status)

	// Not retried on subsequent passes.
	pendingItems, err := st.Queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pendingItems)
}

func TestOrchestrator_RedeliversInFlightItemsAfterCrash(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	op, _ := json.Marshal(models.QueueOperation{Method: "PUT", Collection: "assets", EntityID: "s1"})
	id, err := st.Queue.Enqueue(ctx, op)
	require.NoError(t, err)

	// A process that died mid-attempt leaves the item in_flight.
	require.NoError(t, st.Queue.UpdateStatus(ctx, id, models.QueueStatusInFlight, ""))

	rc := &fakeRemote{}
	o := NewOrchestrator(st, rc, discardLogger())

	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.QueueDone)
	require.Len(t, rc.ExecCalls, 1)
	assert.Equal(t, "PUT", rc.ExecCalls[0].Method)

	n, err := st.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOrchestrator_QueueInvalidOperationIsParked(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	id, err := st.Queue.Enqueue(ctx, json.RawMessage(`not json`))
	require.NoError(t, err)

	o := NewOrchestrator(st, &fakeRemote{}, discardLogger())
	report, err := o.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.QueueFailed)

	item, err := st.Queue.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusFailed, item.Status)
}

func TestOrchestrator_SecondRunIsCoalesced(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	o := NewOrchestrator(st, &fakeRemote{}, discardLogger())
	o.running.Store(true)

	_, err := o.Run(ctx)
	require.ErrorIs(t, err, common.ErrSyncInProgress)

	o.running.Store(false)
	_, err = o.Run(ctx)
	require.NoError(t, err)
}

func TestOrchestrator_SendsCompletionsAsArray(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	pendingSvc := NewPendingService(st, discardLogger())

	tempID, err := pendingSvc.Create(ctx, "inspections", json.RawMessage(`{"assetId":"s1"}`))
	require.NoError(t, err)
	require.NoError(t, pendingSvc.UpdateSubItem(ctx, tempID, models.SubItemCompletion{
		ItemID: "check-1", Done: true, CompletedAt: time.Now(),
	}))

	var body json.RawMessage
	rc := &fakeRemote{CreateID: "srv-1"}
	o := NewOrchestrator(st, &captureRemote{fakeRemote: rc, body: &body}, discardLogger())

	_, err = o.Run(ctx)
	require.NoError(t, err)

	var env struct {
		TempID      string                     `json:"tempId"`
		Payload     json.RawMessage            `json:"payload"`
		Completions []models.SubItemCompletion `json:"completions"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, tempID, env.TempID)
	assert.JSONEq(t, `{"assetId":"s1"}`, string(env.Payload))
	require.Len(t, env.Completions, 1)
	assert.Equal(t, "check-1", env.Completions[0].ItemID)
}

// captureRemote records the last create body on top of fakeRemote.
type captureRemote struct {
	*fakeRemote
	body *json.RawMessage
}

func (c *captureRemote) CreateRecord(ctx context.Context, collection string, body json.RawMessage, idempotencyKey string) (string, error) {
	*c.body = body
	return c.fakeRemote.CreateRecord(ctx, collection, body, idempotencyKey)
}
