package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/psgc-resolver/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWarmUpUpstream(t *testing.T) *fakeUpstream {
	return newFakeUpstream(t, map[string]func(http.ResponseWriter){
		"/regions":                                   jsonBody(regionsJSON),
		"/regions/040000000/provinces":               jsonBody(`[{"code":"043400000","name":"Laguna"},{"code":"041000000","name":"Batangas"}]`),
		"/regions/130000000/provinces":               status(http.StatusBadGateway),
		"/provinces/043400000/cities-municipalities": jsonBody(`[{"code":"043404000","name":"City of Calamba","type":"City"}]`),
		"/provinces/041000000/cities-municipalities": jsonBody(`[]`),
	})
}

func TestAdminService_WarmUp(t *testing.T) {
	u := newWarmUpUpstream(t)
	psgc := newTestPSGCService(u, SystemClock)
	admin := NewAdminService(psgc, nil, zap.NewNop())

	result, err := admin.WarmUp(context.Background(), models.LevelCity, 2)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Records["regions"])
	assert.Equal(t, 2, result.Records["provinces"])
	assert.Equal(t, 1, result.Records["cities"])
	assert.Equal(t, 2, result.Fetched["cities"])
	_, hasBarangays := result.Records["barangays"]
	assert.False(t, hasBarangays)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "provinces/130000000")

	// Lần gọi sau đều từ cache
	_, err = admin.WarmUp(context.Background(), models.LevelCity, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, u.count("/regions"))
	assert.Equal(t, 1, u.count("/provinces/043400000/cities-municipalities"))
}

func TestAdminService_WarmUpInvalidDepth(t *testing.T) {
	admin := NewAdminService(newTestPSGCService(newWarmUpUpstream(t), SystemClock), nil, zap.NewNop())
	_, err := admin.WarmUp(context.Background(), models.Level(9), 1)
	assert.Error(t, err)
}

func TestAdminService_InvalidateAndStats(t *testing.T) {
	u := newWarmUpUpstream(t)
	psgc := newTestPSGCService(u, SystemClock)
	admin := NewAdminService(psgc, newTestFormSessions(FormSessionConfig{}), zap.NewNop())
	ctx := context.Background()

	_, err := psgc.GetRegions(ctx)
	require.NoError(t, err)
	require.NoError(t, admin.InvalidateCache(ctx, models.LevelRegion, ""))
	_, err = psgc.GetRegions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, u.count("/regions"))

	stats, err := admin.GetSystemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", stats.Cache.Driver)
	assert.EqualValues(t, 1, stats.Cache.TotalItems)
	assert.Contains(t, stats.MemoryUsage, "alloc_mb")

	require.NoError(t, admin.ClearCache(ctx))
	stats, err = admin.GetSystemStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Cache.TotalItems)
}

func TestAdminService_ExportData(t *testing.T) {
	admin := NewAdminService(newTestPSGCService(newWarmUpUpstream(t), SystemClock), nil, zap.NewNop())
	ctx := context.Background()

	raw, err := admin.ExportData(ctx, models.LevelProvince, "040000000", "json")
	require.NoError(t, err)
	var items []models.Record
	require.NoError(t, json.Unmarshal(raw, &items))
	assert.Len(t, items, 2)

	raw, err = admin.ExportData(ctx, models.LevelProvince, "040000000", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "043400000,Laguna"))

	_, err = admin.ExportData(ctx, models.LevelProvince, "040000000", "xml")
	assert.Error(t, err)
}
