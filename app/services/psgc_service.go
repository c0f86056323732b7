package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/metrics"
	"github.com/psgc-resolver/internal/normalizer"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrFetch lỗi chung khi lấy dữ liệu PSGC
	ErrFetch = errors.New("failed to fetch PSGC data")
	// ErrUpstreamStatus API trả về status không phải 2xx
	ErrUpstreamStatus = errors.New("unexpected upstream status")
	// ErrUnexpectedPayload payload không phải array hoặc {data: array}
	ErrUnexpectedPayload = errors.New("unexpected payload shape")
)

// FetchError lỗi fetch kèm URL và status; errors.Is khớp cả ErrFetch lẫn nguyên nhân
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("psgc fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("psgc fetch %s: %v", e.URL, e.Err)
}

// Unwrap trả về cả ErrFetch và lỗi gốc
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetch, e.Err}
}

// maxBodySize giới hạn body đọc từ API (danh sách barangay lớn nhất vài trăm KB)
const maxBodySize = 16 << 20

// PSGCConfig cấu hình PSGCService
type PSGCConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // request/giây, 0 = không giới hạn
	Burst     int
	UserAgent string
}

// RecordIndexer nhận danh sách đã fetch để đẩy vào search index
type RecordIndexer interface {
	IndexRecords(ctx context.Context, level models.Level, parentKey string, records []models.Record) error
}

// PSGCService lấy danh sách region/province/city/barangay từ PSGC API, có cache
type PSGCService struct {
	cfg     PSGCConfig
	client  *http.Client
	cache   ICacheService
	limiter *rate.Limiter
	group   singleflight.Group
	indexer RecordIndexer
	indexWG sync.WaitGroup
	logger  *zap.Logger
}

// NewPSGCService tạo mới PSGCService
func NewPSGCService(cfg PSGCConfig, cache ICacheService, logger *zap.Logger) *PSGCService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "psgc-resolver/1.0"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &PSGCService{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		limiter: limiter,
		logger:  logger,
	}
}

// SetIndexer gắn search index; nil để tắt
func (ps *PSGCService) SetIndexer(indexer RecordIndexer) {
	ps.indexer = indexer
}

// Cache trả về cache đang dùng
func (ps *PSGCService) Cache() ICacheService {
	return ps.cache
}

// GetRegions lấy danh sách region
func (ps *PSGCService) GetRegions(ctx context.Context) ([]models.Region, error) {
	records, err := ps.FetchOptions(ctx, models.LevelRegion, "")
	if err != nil {
		return nil, err
	}
	out := make([]models.Region, 0, len(records))
	for _, r := range records {
		out = append(out, models.RegionFromRecord(r))
	}
	return out, nil
}

// GetProvincesByRegion lấy province theo code hoặc tên region
func (ps *PSGCService) GetProvincesByRegion(ctx context.Context, region string) ([]models.Province, error) {
	records, err := ps.FetchOptions(ctx, models.LevelProvince, region)
	if err != nil {
		return nil, err
	}
	out := make([]models.Province, 0, len(records))
	for _, r := range records {
		out = append(out, models.ProvinceFromRecord(r))
	}
	return out, nil
}

// GetCitiesMunicipalitiesByProvince lấy city/municipality theo code hoặc tên province
func (ps *PSGCService) GetCitiesMunicipalitiesByProvince(ctx context.Context, province string) ([]models.CityMunicipality, error) {
	records, err := ps.FetchOptions(ctx, models.LevelCity, province)
	if err != nil {
		return nil, err
	}
	out := make([]models.CityMunicipality, 0, len(records))
	for _, r := range records {
		out = append(out, models.CityFromRecord(r))
	}
	return out, nil
}

// GetBarangaysByCityMunicipality lấy barangay theo code hoặc tên city/municipality
func (ps *PSGCService) GetBarangaysByCityMunicipality(ctx context.Context, city string) ([]models.Barangay, error) {
	records, err := ps.FetchOptions(ctx, models.LevelBarangay, city)
	if err != nil {
		return nil, err
	}
	out := make([]models.Barangay, 0, len(records))
	for _, r := range records {
		out = append(out, models.BarangayFromRecord(r))
	}
	return out, nil
}

// URLFor dựng URL request cho một cấp; parentKey có thể là code hoặc tên
func (ps *PSGCService) URLFor(level models.Level, parentKey string) (string, error) {
	parentKey = strings.TrimSpace(parentKey)
	if level != models.LevelRegion && parentKey == "" {
		return "", fmt.Errorf("thiếu parent cho %s", level.Plural())
	}

	segment := url.PathEscape(parentKey)
	switch level {
	case models.LevelRegion:
		return ps.cfg.BaseURL + "/regions", nil
	case models.LevelProvince:
		return ps.cfg.BaseURL + "/regions/" + segment + "/provinces", nil
	case models.LevelCity:
		return ps.cfg.BaseURL + "/provinces/" + segment + "/cities-municipalities", nil
	case models.LevelBarangay:
		return ps.cfg.BaseURL + "/cities-municipalities/" + segment + "/barangays", nil
	}
	return "", fmt.Errorf("level không hợp lệ: %d", int(level))
}

// FetchOptions lấy danh sách bản ghi của một cấp, dùng cache nếu còn fresh
func (ps *PSGCService) FetchOptions(ctx context.Context, level models.Level, parentKey string) ([]models.Record, error) {
	endpoint, err := ps.URLFor(level, parentKey)
	if err != nil {
		return nil, err
	}

	if records, ok := ps.fromCache(ctx, endpoint); ok {
		return records, nil
	}

	ch := ps.group.DoChan(endpoint, func() (interface{}, error) {
		// Request dùng chung giữa các caller nên không gắn với ctx của riêng caller nào
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ps.cfg.Timeout)
		defer cancel()
		return ps.fetchAndStore(fetchCtx, level, parentKey, endpoint)
	})

	select {
	case <-ctx.Done():
		return nil, &FetchError{URL: endpoint, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneRecords(res.Val.([]models.Record)), nil
	}
}

// Invalidate xóa cache của một URL
func (ps *PSGCService) Invalidate(ctx context.Context, level models.Level, parentKey string) error {
	endpoint, err := ps.URLFor(level, parentKey)
	if err != nil {
		return err
	}
	return ps.cache.Delete(ctx, endpoint)
}

func (ps *PSGCService) fromCache(ctx context.Context, endpoint string) ([]models.Record, bool) {
	entry, found, err := ps.cache.Get(ctx, endpoint)
	if err != nil {
		metrics.RecordCacheLookup("error")
		ps.logger.Warn("Lỗi đọc cache, fetch trực tiếp", zap.Error(err), zap.String("url", endpoint))
		return nil, false
	}
	if !found {
		metrics.RecordCacheLookup("miss")
		return nil, false
	}
	if !ps.cache.IsFresh(entry) {
		metrics.RecordCacheLookup("stale")
		return nil, false
	}

	var records []models.Record
	if err := json.Unmarshal(entry.Payload, &records); err != nil {
		metrics.RecordCacheLookup("error")
		ps.logger.Warn("Cache entry hỏng", zap.Error(err), zap.String("url", endpoint))
		return nil, false
	}
	metrics.RecordCacheLookup("hit")
	return records, true
}

func (ps *PSGCService) fetchAndStore(ctx context.Context, level models.Level, parentKey, endpoint string) ([]models.Record, error) {
	records, err := ps.fetch(ctx, level, endpoint)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("lỗi marshal records: %w", err)
	}
	if err := ps.cache.Set(ctx, endpoint, payload); err != nil {
		ps.logger.Warn("Không thể lưu cache", zap.Error(err), zap.String("url", endpoint))
	}

	if ps.indexer != nil && len(records) > 0 {
		ps.indexWG.Add(1)
		go ps.index(level, parentKey, cloneRecords(records))
	}
	return records, nil
}

func (ps *PSGCService) fetch(ctx context.Context, level models.Level, endpoint string) ([]models.Record, error) {
	if err := ps.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", ps.cfg.UserAgent)

	start := time.Now()
	resp, err := ps.client.Do(req)
	if err != nil {
		metrics.RecordUpstream(level.String(), 0, time.Since(start))
		return nil, &FetchError{URL: endpoint, Err: err}
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(level.String(), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode, Err: ErrUpstreamStatus}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	records, err := ParseRecords(body)
	if err != nil {
		return nil, &FetchError{URL: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	ps.logger.Debug("Đã fetch PSGC",
		zap.String("url", endpoint),
		zap.Int("count", len(records)),
		zap.Duration("took", time.Since(start)))
	return records, nil
}

// WaitIndexing chờ các lần index đang chạy kết thúc
func (ps *PSGCService) WaitIndexing() {
	ps.indexWG.Wait()
}

func (ps *PSGCService) index(level models.Level, parentKey string, records []models.Record) {
	defer ps.indexWG.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ps.indexer.IndexRecords(ctx, level, parentKey, records); err != nil {
		ps.logger.Warn("Lỗi index PSGC records", zap.Error(err), zap.Stringer("level", level))
	}
}

// ParseRecords decode body (UTF-8, fallback Latin-1), chấp nhận array hoặc {data: array}
// và sửa tên bị lỗi encoding
func ParseRecords(body []byte) ([]models.Record, error) {
	text := normalizer.DecodeUTF8(body)
	if !gjson.Valid(text) {
		return nil, ErrUnexpectedPayload
	}

	root := gjson.Parse(text)
	list := root
	if !root.IsArray() {
		list = root.Get("data")
		if !list.IsArray() {
			return nil, ErrUnexpectedPayload
		}
	}

	records := make([]models.Record, 0, len(list.Array()))
	var parseErr error
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			parseErr = ErrUnexpectedPayload
			return false
		}
		records = append(records, recordFromJSON(item))
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return records, nil
}

func recordFromJSON(item gjson.Result) models.Record {
	return models.Record{
		Code:             firstString(item, "code", "psgc_code", "psgcCode"),
		Name:             normalizer.Clean(firstString(item, "name")),
		Type:             firstString(item, "type"),
		Status:           firstString(item, "status"),
		Region:           firstString(item, "region", "region_code", "regionCode"),
		Province:         firstString(item, "province", "province_code", "provinceCode"),
		CityMunicipality: firstString(item, "city_municipality", "city_code", "cityCode", "municipalityCode"),
		ZipCode:          firstString(item, "zip_code", "zipcode", "zipCode"),
	}
}

// firstString lấy field đầu tiên có giá trị; field dạng object lấy code bên trong
func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		v := item.Get(p)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.IsObject() {
			v = v.Get("code")
		}
		if s := strings.TrimSpace(normalizer.RepairMojibake(v.String())); s != "" {
			return s
		}
	}
	return ""
}

func cloneRecords(in []models.Record) []models.Record {
	return append([]models.Record(nil), in...)
}
