package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meilisearch/meilisearch-go"
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/normalizer"
	"go.uber.org/zap"
)

// Config cấu hình cho Meilisearch
type Config struct {
	Host      string
	APIKey    string
	IndexName string
	Timeout   time.Duration
	BatchSize int
}

// Document một bản ghi PSGC trong index
type Document struct {
	ID             string  `json:"id"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalized_name"`
	Level          int     `json:"level"`
	LevelName      string  `json:"level_name"`
	ParentCode     string  `json:"parent_code,omitempty"`
	Type           string  `json:"type,omitempty"`
	Status         string  `json:"status,omitempty"`
	Region         string  `json:"region,omitempty"`
	Province       string  `json:"province,omitempty"`
	RankingScore   float64 `json:"_rankingScore,omitempty"`
}

// Record chuyển document về Record
func (d Document) Record() models.Record {
	rec := models.Record{
		Code:     d.Code,
		Name:     d.Name,
		Type:     d.Type,
		Status:   d.Status,
		Region:   d.Region,
		Province: d.Province,
	}
	if models.Level(d.Level) == models.LevelBarangay {
		rec.CityMunicipality = d.ParentCode
	}
	return rec
}

// PSGCIndex index Meilisearch cho các danh sách PSGC đã fetch
type PSGCIndex struct {
	client    meilisearch.ServiceManager
	indexName string
	timeout   time.Duration
	batchSize int
	logger    *zap.Logger
}

// NewPSGCIndex tạo mới PSGCIndex và kiểm tra kết nối
func NewPSGCIndex(cfg Config, logger *zap.Logger) (*PSGCIndex, error) {
	if cfg.IndexName == "" {
		cfg.IndexName = "psgc"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}

	client := NewClient(cfg.Host, cfg.APIKey)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if _, err := client.HealthWithContext(ctx); err != nil {
		return nil, fmt.Errorf("không thể kết nối Meilisearch: %w", err)
	}

	return &PSGCIndex{
		client:    client,
		indexName: cfg.IndexName,
		timeout:   cfg.Timeout,
		batchSize: cfg.BatchSize,
		logger:    logger,
	}, nil
}

// ConfigureIndex cấu hình searchable/filterable attributes và synonyms
func (pi *PSGCIndex) ConfigureIndex(ctx context.Context) error {
	index := pi.client.Index(pi.indexName)

	task, err := index.UpdateSettingsWithContext(ctx, &meilisearch.Settings{
		SearchableAttributes: []string{"name", "normalized_name"},
		FilterableAttributes: []string{"level", "parent_code", "code", "region", "province"},
		SortableAttributes:   []string{"level", "name"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		Synonyms: map[string][]string{
			"sto":  {"santo"},
			"sta":  {"santa"},
			"brgy": {"barangay"},
			"pob":  {"poblacion"},
			"ncr":  {"national capital region", "metro manila"},
		},
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  4,
				TwoTypos: 8,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("lỗi cấu hình index: %w", err)
	}

	pi.logger.Info("Đã gửi cấu hình index Meilisearch", zap.Int64("task_uid", task.TaskUID))
	return pi.waitForTask(ctx, task.TaskUID)
}

// IndexRecords thêm hoặc cập nhật một danh sách vào index
func (pi *PSGCIndex) IndexRecords(ctx context.Context, level models.Level, parentKey string, records []models.Record) error {
	documents := BuildDocuments(level, parentKey, records)
	if len(documents) == 0 {
		return nil
	}

	index := pi.client.Index(pi.indexName)
	for i := 0; i < len(documents); i += pi.batchSize {
		end := i + pi.batchSize
		if end > len(documents) {
			end = len(documents)
		}

		task, err := index.AddDocumentsWithContext(ctx, documents[i:end], "id")
		if err != nil {
			return fmt.Errorf("lỗi thêm documents batch %d-%d: %w", i, end, err)
		}

		pi.logger.Debug("Đã thêm batch documents",
			zap.Stringer("level", level),
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}
	return nil
}

// Search tìm theo tên, lọc theo cấp và code cấp cha nếu có
func (pi *PSGCIndex) Search(ctx context.Context, query string, level models.Level, parentCode string, limit int) ([]Document, error) {
	if query == "" {
		return nil, errors.New("query không được để trống")
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, pi.timeout)
	defer cancel()

	req := &meilisearch.SearchRequest{
		Limit:            int64(limit),
		ShowRankingScore: true,
	}
	if filter := FilterLevelParent(int(level), parentCode); filter != "" {
		req.Filter = filter
	}

	result, err := pi.client.Index(pi.indexName).SearchWithContext(ctx, normalizer.Fold(query), req)
	if err != nil {
		return nil, fmt.Errorf("lỗi tìm kiếm: %w", err)
	}
	return parseHits(result.Hits)
}

func (pi *PSGCIndex) waitForTask(ctx context.Context, taskUID int64) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		task, err := pi.client.GetTaskWithContext(ctx, taskUID)
		if err != nil {
			return fmt.Errorf("lỗi check task status: %w", err)
		}
		switch task.Status {
		case meilisearch.TaskStatusSucceeded:
			return nil
		case meilisearch.TaskStatusFailed, meilisearch.TaskStatusCanceled:
			return fmt.Errorf("task %d thất bại: %s", taskUID, task.Error.Message)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// BuildDocuments chuyển danh sách bản ghi thành document; code cấp cha lấy từ
// bản ghi, nếu thiếu thì dùng parentKey
func BuildDocuments(level models.Level, parentKey string, records []models.Record) []Document {
	documents := make([]Document, 0, len(records))
	for _, r := range records {
		if r.Code == "" {
			continue
		}
		parent := parentCode(level, r)
		if parent == "" {
			parent = parentKey
		}
		documents = append(documents, Document{
			ID:             documentID(level.String(), r.Code),
			Code:           r.Code,
			Name:           r.Name,
			NormalizedName: normalizer.Fold(r.Name),
			Level:          int(level),
			LevelName:      level.String(),
			ParentCode:     parent,
			Type:           r.Type,
			Status:         r.Status,
			Region:         r.Region,
			Province:       r.Province,
		})
	}
	return documents
}

func parentCode(level models.Level, r models.Record) string {
	switch level {
	case models.LevelProvince:
		return r.Region
	case models.LevelCity:
		return r.Province
	case models.LevelBarangay:
		return r.CityMunicipality
	}
	return ""
}

// parseHits decode hits qua JSON để không phụ thuộc kiểu hit của client
func parseHits(hits interface{}) ([]Document, error) {
	raw, err := json.Marshal(hits)
	if err != nil {
		return nil, fmt.Errorf("lỗi parse kết quả: %w", err)
	}
	var documents []Document
	if err := json.Unmarshal(raw, &documents); err != nil {
		return nil, fmt.Errorf("lỗi parse kết quả: %w", err)
	}
	return documents, nil
}
