package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func techScope() models.Scope {
	return models.Scope{UserID: "u1", OrganizationID: "org1"}
}

func entity(id, org string, payload string) models.CachedEntity {
	return models.CachedEntity{ID: id, OrganizationID: org, Payload: json.RawMessage(payload)}
}

func TestCacheService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	items := []models.CachedEntity{
		entity("s1", "org1", `{"name":"pump A"}`),
		entity("s2", "org1", `{"name":"pump B"}`),
	}
	require.NoError(t, svc.CacheData(ctx, techScope(), "assets", items))

	got, err := svc.GetCachedData(ctx, techScope(), "assets")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "s1", got[0].ID)
	assert.JSONEq(t, `{"name":"pump A"}`, string(got[0].Payload))
}

func TestCacheService_ReadFiltersByOrganization(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	global := models.Scope{UserID: "admin", OrganizationID: "org1", GlobalScope: true}
	require.NoError(t, svc.CacheData(ctx, global, "assets", []models.CachedEntity{
		entity("s1", "org1", `{}`),
		entity("s2", "org2", `{}`),
	}))

	got, err := svc.GetCachedData(ctx, techScope(), "assets")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	all, err := svc.GetCachedData(ctx, global, "assets")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCacheService_WriteWithoutScopeIsRefused(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	err := svc.CacheData(ctx, models.Scope{}, "assets", []models.CachedEntity{
		entity("s1", "org1", `{}`),
	})
	require.NoError(t, err)

	counts, err := st.Cache.CountByCollection(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts["assets"], "refused write must not grow the store")
}

func TestCacheService_ReadWithoutScopeReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	require.NoError(t, svc.CacheData(ctx, techScope(), "assets", []models.CachedEntity{
		entity("s1", "org1", `{}`),
	}))

	got, err := svc.GetCachedData(ctx, models.Scope{UserID: "u1"}, "assets")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheService_Staleness(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	assert.True(t, svc.IsCacheStale(ctx, techScope(), "assets", time.Hour), "no metadata means stale")
	assert.True(t, svc.IsCacheStale(ctx, models.Scope{}, "assets", time.Hour), "no scope means stale")

	require.NoError(t, svc.CacheData(ctx, techScope(), "assets", []models.CachedEntity{
		entity("s1", "org1", `{}`),
	}))

	assert.False(t, svc.IsCacheStale(ctx, techScope(), "assets", time.Hour))
	assert.True(t, svc.IsCacheStale(ctx, techScope(), "assets", -time.Second), "past max age means stale")

	// Stamp the freshness marker a second ahead so the zero max age
	// assertion cannot race a millisecond boundary between write and check.
	require.NoError(t, st.Metadata.Upsert(ctx, models.CacheMetadata{
		Collection: "assets", UserID: "u1", OrganizationID: "org1",
		LastRefreshedAt: time.Now().Add(time.Second),
	}))
	assert.False(t, svc.IsCacheStale(ctx, techScope(), "assets", 0), "fresh write is not stale even at zero max age")
	assert.True(t, svc.IsCacheStale(ctx, models.Scope{UserID: "other", OrganizationID: "org1"}, "assets", time.Hour),
		"freshness markers are per user")
}

func TestCacheService_ClearCacheScopedInvalidatesOnly(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	scope := techScope()
	require.NoError(t, svc.CacheData(ctx, scope, "assets", []models.CachedEntity{
		entity("s1", "org1", `{}`),
	}))

	require.NoError(t, svc.ClearCache(ctx, "assets", &scope))

	assert.True(t, svc.IsCacheStale(ctx, scope, "assets", time.Hour))
	got, err := svc.GetCachedData(ctx, scope, "assets")
	require.NoError(t, err)
	assert.Len(t, got, 1, "scoped clear keeps the data for offline use")
}

func TestCacheService_ClearCacheFullWipesCollection(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	require.NoError(t, svc.CacheData(ctx, techScope(), "assets", []models.CachedEntity{
		entity("s1", "org1", `{}`),
	}))
	require.NoError(t, svc.CacheData(ctx, techScope(), "forms", []models.CachedEntity{
		entity("f1", "org1", `{}`),
	}))

	require.NoError(t, svc.ClearCache(ctx, "assets", nil))

	got, err := svc.GetCachedData(ctx, techScope(), "assets")
	require.NoError(t, err)
	assert.Empty(t, got)

	forms, err := svc.GetCachedData(ctx, techScope(), "forms")
	require.NoError(t, err)
	assert.Len(t, forms, 1, "other collections untouched")
}

func TestCacheService_GetByIndex(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	require.NoError(t, svc.CacheData(ctx, techScope(), "assets", []models.CachedEntity{
		entity("s1", "org1", `{"siteId":"site-9"}`),
		entity("s2", "org1", `{"siteId":"site-7"}`),
	}))

	got, err := svc.GetCachedItemsByIndex(ctx, "assets", "siteId", "site-9")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
}

func TestCacheService_Refresh(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	rc := &fakeRemote{FetchItems: []models.CachedEntity{
		entity("s1", "org1", `{"name":"pump A"}`),
		entity("s2", "org1", `{"name":"pump B"}`),
	}}
	svc := NewCacheService(st, rc, discardLogger())

	n, err := svc.Refresh(ctx, techScope(), "assets")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := svc.GetCachedData(ctx, techScope(), "assets")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.False(t, svc.IsCacheStale(ctx, techScope(), "assets", time.Minute))
}

func TestCacheService_RefreshRequiresScope(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewCacheService(st, &fakeRemote{}, discardLogger())

	_, err := svc.Refresh(ctx, models.Scope{}, "assets")
	require.ErrorIs(t, err, common.ErrMissingScope)
}
