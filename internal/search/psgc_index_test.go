package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/psgc-resolver/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFilterLevelParent(t *testing.T) {
	assert.Equal(t, "", FilterLevel(0))
	assert.Equal(t, "level = 1", FilterLevelParent(1, ""))
	assert.Equal(t, `level = 2 AND parent_code = "040000000"`, FilterLevelParent(2, "040000000"))
	assert.Equal(t, `parent_code = "040000000"`, FilterLevelParent(0, "040000000"))
}

func TestBuildDocuments(t *testing.T) {
	records := []models.Record{
		{Code: "043404000", Name: "City of Calamba", Type: "City", Region: "040000000", Province: "043400000"},
		{Code: "043405000", Name: "Calauan", Type: "Mun"},
		{Name: "không có code"},
	}

	docs := BuildDocuments(models.LevelCity, "Laguna", records)
	require.Len(t, docs, 2)

	assert.Equal(t, "city-043404000", docs[0].ID)
	assert.Equal(t, "city of calamba", docs[0].NormalizedName)
	assert.Equal(t, 3, docs[0].Level)
	assert.Equal(t, "043400000", docs[0].ParentCode)
	// Thiếu code cấp cha trong bản ghi thì dùng parent key
	assert.Equal(t, "Laguna", docs[1].ParentCode)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "barangay-043404045", documentID("barangay", "043404045"))
	assert.Equal(t, "region-Region_IV-A", documentID("region", "Region IV-A"))
}

func TestDocument_Record(t *testing.T) {
	doc := Document{Code: "043404045", Name: "Real", Level: int(models.LevelBarangay), ParentCode: "043404000"}
	rec := doc.Record()
	assert.Equal(t, "043404000", rec.CityMunicipality)
	assert.Equal(t, "Real", rec.Name)
}

// fakeMeili giả lập các endpoint Meilisearch dùng bởi PSGCIndex
type fakeMeili struct {
	mu        sync.Mutex
	documents []Document
	searches  []map[string]interface{}
}

func (f *fakeMeili) handler(t *testing.T) http.Handler {
	taskInfo := `{"taskUid":1,"indexUid":"psgc","status":"enqueued","type":"documentAdditionOrUpdate","enqueuedAt":"2024-01-01T00:00:00Z"}`

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"available"}`))
	})
	mux.HandleFunc("/indexes/psgc/documents", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.URL.Query().Get("primaryKey"))
		body, _ := io.ReadAll(r.Body)
		var docs []Document
		require.NoError(t, json.Unmarshal(body, &docs))

		f.mu.Lock()
		f.documents = append(f.documents, docs...)
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(taskInfo))
	})
	mux.HandleFunc("/indexes/psgc/search", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.searches = append(f.searches, req)
		hits := f.documents
		f.mu.Unlock()

		resp := map[string]interface{}{
			"hits":               hits,
			"query":              req["q"],
			"processingTimeMs":   1,
			"limit":              20,
			"offset":             0,
			"estimatedTotalHits": len(hits),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func newTestIndex(t *testing.T) (*PSGCIndex, *fakeMeili) {
	t.Helper()
	fake := &fakeMeili{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	idx, err := NewPSGCIndex(Config{Host: srv.URL, IndexName: "psgc", Timeout: 2 * time.Second, BatchSize: 2}, zap.NewNop())
	require.NoError(t, err)
	return idx, fake
}

func TestPSGCIndex_IndexAndSearch(t *testing.T) {
	idx, fake := newTestIndex(t)
	ctx := context.Background()

	records := []models.Record{
		{Code: "043404045", Name: "Real", CityMunicipality: "043404000"},
		{Code: "043404001", Name: "Bagong Kalsada", CityMunicipality: "043404000"},
		{Code: "043404002", Name: "Banadero", CityMunicipality: "043404000"},
	}
	require.NoError(t, idx.IndexRecords(ctx, models.LevelBarangay, "043404000", records))

	fake.mu.Lock()
	assert.Len(t, fake.documents, 3, "gửi theo batch 2 + 1")
	fake.mu.Unlock()

	docs, err := idx.Search(ctx, "Bagóng  Kalsada", models.LevelBarangay, "043404000", 5)
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.searches, 1)
	assert.Equal(t, "bagong kalsada", fake.searches[0]["q"])
	assert.Equal(t, `level = 4 AND parent_code = "043404000"`, fake.searches[0]["filter"])
}

func TestPSGCIndex_EmptyQuery(t *testing.T) {
	idx, _ := newTestIndex(t)
	_, err := idx.Search(context.Background(), "", models.LevelRegion, "", 5)
	assert.Error(t, err)
}

func TestNewPSGCIndex_Unreachable(t *testing.T) {
	_, err := NewPSGCIndex(Config{Host: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, zap.NewNop())
	assert.Error(t, err)
}
