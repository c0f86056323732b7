package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/psgc-resolver/app/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AdminService service quản lý admin functions
type AdminService struct {
	psgc      *PSGCService
	sessions  *FormSessionService
	startedAt time.Time
	logger    *zap.Logger
}

// WarmUpResult kết quả warm up cache
type WarmUpResult struct {
	Depth            models.Level   `json:"depth"`
	Fetched          map[string]int `json:"fetched"` // số danh sách đã fetch theo cấp
	Records          map[string]int `json:"records"` // số bản ghi theo cấp
	Failures         []string       `json:"failures,omitempty"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}

// SystemStats thống kê hệ thống
type SystemStats struct {
	Uptime         string                 `json:"uptime"`
	ActiveSessions int                    `json:"active_sessions"`
	Cache          *CacheStats            `json:"cache"`
	MemoryUsage    map[string]interface{} `json:"memory_usage"`
	Goroutines     int                    `json:"goroutines"`
}

// NewAdminService tạo mới AdminService
func NewAdminService(psgc *PSGCService, sessions *FormSessionService, logger *zap.Logger) *AdminService {
	return &AdminService{
		psgc:      psgc,
		sessions:  sessions,
		startedAt: time.Now(),
		logger:    logger,
	}
}

// WarmUp fetch trước toàn bộ cây PSGC tới cấp depth để nạp cache (và search index)
func (as *AdminService) WarmUp(ctx context.Context, depth models.Level, concurrency int) (*WarmUpResult, error) {
	if !depth.Valid() {
		return nil, fmt.Errorf("depth không hợp lệ: %d", int(depth))
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	start := time.Now()

	var (
		mu       sync.Mutex
		failures []string
		fetched  [4]atomic.Int64
		records  [4]atomic.Int64
	)

	regions, err := as.psgc.FetchOptions(ctx, models.LevelRegion, "")
	if err != nil {
		return nil, fmt.Errorf("lỗi warm up regions: %w", err)
	}
	fetched[0].Add(1)
	records[0].Add(int64(len(regions)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	// walk chạy trong goroutine của errgroup; lỗi từng danh sách chỉ ghi lại, không dừng cả cây
	var walk func(level models.Level, parent string)
	walk = func(level models.Level, parent string) {
		items, err := as.psgc.FetchOptions(gctx, level, parent)
		if err != nil {
			mu.Lock()
			failures = append(failures, fmt.Sprintf("%s/%s: %v", level.Plural(), parent, err))
			mu.Unlock()
			return
		}
		fetched[level-1].Add(1)
		records[level-1].Add(int64(len(items)))

		if level >= depth {
			return
		}
		for _, item := range items {
			walk(level.Child(), item.Code)
		}
	}

	if depth > models.LevelRegion {
		for _, r := range regions {
			code := r.Code
			g.Go(func() error {
				walk(models.LevelProvince, code)
				return gctx.Err()
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("warm up bị hủy: %w", err)
	}

	result := &WarmUpResult{
		Depth:            depth,
		Fetched:          make(map[string]int),
		Records:          make(map[string]int),
		Failures:         failures,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	for _, l := range models.Levels {
		if l > depth {
			break
		}
		result.Fetched[l.Plural()] = int(fetched[l-1].Load())
		result.Records[l.Plural()] = int(records[l-1].Load())
	}

	as.logger.Info("Warm up cache hoàn thành",
		zap.Stringer("depth", depth),
		zap.Any("records", result.Records),
		zap.Int("failures", len(failures)),
		zap.Int64("took_ms", result.ProcessingTimeMs))
	return result, nil
}

// InvalidateCache xóa cache của một danh sách
func (as *AdminService) InvalidateCache(ctx context.Context, level models.Level, parentKey string) error {
	if err := as.psgc.Invalidate(ctx, level, parentKey); err != nil {
		return fmt.Errorf("lỗi invalidate cache: %w", err)
	}
	as.logger.Info("Đã invalidate cache", zap.Stringer("level", level), zap.String("parent", parentKey))
	return nil
}

// ClearCache xóa toàn bộ cache
func (as *AdminService) ClearCache(ctx context.Context) error {
	if err := as.psgc.Cache().Clear(ctx); err != nil {
		return fmt.Errorf("lỗi clear cache: %w", err)
	}
	as.logger.Info("Đã clear cache")
	return nil
}

// GetSystemStats lấy thống kê hệ thống
func (as *AdminService) GetSystemStats(ctx context.Context) (*SystemStats, error) {
	cacheStats, err := as.psgc.Cache().GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("lỗi lấy cache stats: %w", err)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memoryUsage := map[string]interface{}{
		"alloc_mb":       bToMb(m.Alloc),
		"total_alloc_mb": bToMb(m.TotalAlloc),
		"sys_mb":         bToMb(m.Sys),
		"num_gc":         m.NumGC,
	}

	stats := &SystemStats{
		Uptime:      time.Since(as.startedAt).Round(time.Second).String(),
		Cache:       cacheStats,
		MemoryUsage: memoryUsage,
		Goroutines:  runtime.NumGoroutine(),
	}
	if as.sessions != nil {
		stats.ActiveSessions = as.sessions.Count()
	}
	return stats, nil
}

// ExportData xuất một danh sách PSGC dạng json hoặc csv
func (as *AdminService) ExportData(ctx context.Context, level models.Level, parentKey, format string) ([]byte, error) {
	items, err := as.psgc.FetchOptions(ctx, level, parentKey)
	if err != nil {
		return nil, err
	}

	switch format {
	case "", "json":
		return json.Marshal(items)
	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write([]string{"code", "name", "type", "status", "region", "province", "city_municipality", "zip_code"})
		for _, r := range items {
			_ = w.Write([]string{r.Code, r.Name, r.Type, r.Status, r.Region, r.Province, r.CityMunicipality, r.ZipCode})
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, fmt.Errorf("lỗi ghi csv: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.New("không hỗ trợ format này")
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
