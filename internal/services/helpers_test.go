package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fieldops/fieldsync/internal/logging"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/fieldops/fieldsync/internal/remote"
	"github.com/fieldops/fieldsync/internal/store"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(io.Discard, slog.LevelError)
}

// fakeRemote implements remote.Client with presettable results, in the spirit
// of a hand-rolled test double rather than a mocking framework.
type fakeRemote struct {
	remote.Client

	PingErr error

	FetchItems []models.CachedEntity
	FetchErr   error

	CreateID   string
	CreateErr  error
	CreateKeys []string

	ExecErr   error
	ExecCalls []models.QueueOperation

	UploadErr error
	Uploaded  []string
}

func (f *fakeRemote) Ping(ctx context.Context) error { return f.PingErr }

func (f *fakeRemote) FetchCollection(ctx context.Context, collection string, scope models.Scope) ([]models.CachedEntity, error) {
	return f.FetchItems, f.FetchErr
}

func (f *fakeRemote) CreateRecord(ctx context.Context, collection string, body json.RawMessage, idempotencyKey string) (string, error) {
	f.CreateKeys = append(f.CreateKeys, idempotencyKey)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	return f.CreateID, nil
}

func (f *fakeRemote) Execute(ctx context.Context, op models.QueueOperation, idempotencyKey string) error {
	f.ExecCalls = append(f.ExecCalls, op)
	return f.ExecErr
}

func (f *fakeRemote) UploadMedia(ctx context.Context, serverRecordID string, m *models.PendingMedia) error {
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.Uploaded = append(f.Uploaded, m.FileName)
	return nil
}

func (f *fakeRemote) Close() error { return nil }
