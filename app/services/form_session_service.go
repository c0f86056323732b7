package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/helpers/utils"
	"github.com/psgc-resolver/internal/matcher"
	"github.com/psgc-resolver/internal/metrics"
	"github.com/psgc-resolver/internal/resolver"
	"go.uber.org/zap"
)

// ErrSessionNotFound session không tồn tại hoặc đã hết hạn
var ErrSessionNotFound = errors.New("address form session not found")

// FormSessionConfig cấu hình FormSessionService
type FormSessionConfig struct {
	MaxSessions  int
	SessionTTL   time.Duration
	FetchTimeout time.Duration
	Strictness   matcher.Strictness // mặc định khi request không chỉ định
	Matcher      matcher.Config
}

// FormSession một form địa chỉ đang mở
type FormSession struct {
	ID         string
	Strictness matcher.Strictness
	CreatedAt  time.Time
	*resolver.Session
}

// FormSessionService quản lý các form session, mỗi session một state machine
type FormSessionService struct {
	cfg      FormSessionConfig
	fetcher  resolver.Fetcher
	matchers map[matcher.Strictness]*matcher.NameMatcher
	sessions *expirable.LRU[string, *FormSession]
	active   atomic.Int64
	mu       sync.Mutex // Get gia hạn và Delete không chen nhau
	logger   *zap.Logger
}

// NewFormSessionService tạo mới FormSessionService
func NewFormSessionService(cfg FormSessionConfig, fetcher resolver.Fetcher, logger *zap.Logger) *FormSessionService {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}
	if cfg.Strictness == "" {
		cfg.Strictness = matcher.StrictnessStandard
	}

	fss := &FormSessionService{
		cfg:      cfg,
		fetcher:  fetcher,
		matchers: make(map[matcher.Strictness]*matcher.NameMatcher),
		logger:   logger,
	}
	for _, s := range []matcher.Strictness{matcher.StrictnessStrict, matcher.StrictnessStandard, matcher.StrictnessFuzzy} {
		mc := cfg.Matcher
		mc.Strictness = s
		fss.matchers[s] = matcher.NewNameMatcher(mc)
	}

	// Callback chạy khi đang giữ lock của LRU, không được gọi lại sessions ở đây
	fss.sessions = expirable.NewLRU[string, *FormSession](cfg.MaxSessions, func(id string, fs *FormSession) {
		fs.Close()
		metrics.SetActiveSessions(int(fss.active.Add(-1)))
		logger.Debug("Đóng form session", zap.String("session_id", id))
	}, cfg.SessionTTL)

	return fss
}

// Create mở session mới, hydrate nếu có địa chỉ sẵn
func (fss *FormSessionService) Create(data *models.AddressData, strictness string) (*FormSession, error) {
	s, err := fss.resolveStrictness(strictness)
	if err != nil {
		return nil, err
	}

	id := utils.GenerateUUID()
	fs := &FormSession{
		ID:         id,
		Strictness: s,
		CreatedAt:  time.Now(),
		Session:    fss.newSession(s),
	}

	if data != nil {
		if err := fs.Hydrate(*data); err != nil {
			fs.Close()
			return nil, fmt.Errorf("lỗi hydrate form session: %w", err)
		}
	} else if err := fs.Open(models.LevelRegion); err != nil {
		fs.Close()
		return nil, fmt.Errorf("lỗi mở form session: %w", err)
	}

	metrics.SetActiveSessions(int(fss.active.Add(1)))
	fss.sessions.Add(id, fs)

	fss.logger.Debug("Tạo form session",
		zap.String("session_id", id),
		zap.String("strictness", string(s)),
		zap.Bool("hydrated", data != nil))
	return fs, nil
}

// Get lấy session theo ID và gia hạn TTL của session
func (fss *FormSessionService) Get(id string) (*FormSession, error) {
	fss.mu.Lock()
	defer fss.mu.Unlock()

	fs, ok := fss.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	// expirable.LRU không gia hạn khi Get; Add lại key đã có chỉ đặt lại hạn
	fss.sessions.Add(id, fs)
	return fs, nil
}

// Delete đóng và xóa session
func (fss *FormSessionService) Delete(id string) error {
	fss.mu.Lock()
	defer fss.mu.Unlock()

	if !fss.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

// Count số session đang lưu
func (fss *FormSessionService) Count() int {
	return fss.sessions.Len()
}

// Resolve chạy cascade một lần cho địa chỉ, không lưu session
func (fss *FormSessionService) Resolve(ctx context.Context, data models.AddressData, strictness string) (resolver.View, error) {
	s, err := fss.resolveStrictness(strictness)
	if err != nil {
		return resolver.View{}, err
	}

	session := fss.newSession(s)
	defer session.Close()

	start := time.Now()
	view, err := session.Resolve(ctx, data)
	if err != nil {
		return view, fmt.Errorf("lỗi resolve địa chỉ: %w", err)
	}

	fss.logger.Debug("Resolve địa chỉ",
		zap.Bool("complete", view.Complete()),
		zap.Int("errors", len(view.Errors)),
		zap.Duration("took", time.Since(start)))
	return view, nil
}

// Purge đóng toàn bộ session, dùng khi shutdown
func (fss *FormSessionService) Purge() {
	fss.sessions.Purge()
}

func (fss *FormSessionService) resolveStrictness(raw string) (matcher.Strictness, error) {
	if raw == "" {
		return fss.cfg.Strictness, nil
	}
	return matcher.ParseStrictness(raw)
}

func (fss *FormSessionService) newSession(s matcher.Strictness) *resolver.Session {
	return resolver.NewSession(fss.fetcher, fss.matchers[s], resolver.SessionOptions{
		FetchTimeout: fss.cfg.FetchTimeout,
		OnResolve: func(r resolver.Resolution) {
			metrics.RecordResolution(r.Level.String(), string(r.Match.Strategy))
		},
		OnLoadFailed: func(l models.Level, _ error) {
			metrics.RecordLoadFailure(l.String())
		},
	}, fss.logger)
}
