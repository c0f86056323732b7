package resolver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/matcher"
	"go.uber.org/zap"
)

// ErrSessionClosed session đã đóng
var ErrSessionClosed = errors.New("session is closed")

// Fetcher nguồn option theo cấp, thường là PSGCService
type Fetcher interface {
	FetchOptions(ctx context.Context, level models.Level, parentKey string) ([]models.Record, error)
}

// SessionOptions cấu hình Session
type SessionOptions struct {
	FetchTimeout time.Duration
	// OnUpdate gọi tuần tự mỗi khi địa chỉ đổi do resolve hoặc người dùng chọn
	OnUpdate func(models.AddressData)
	// OnResolve gọi khi một cấp được resolve tự động
	OnResolve func(Resolution)
	// OnLoadFailed gọi khi fetch option thất bại
	OnLoadFailed func(models.Level, error)
}

// Session chạy Machine với Fetcher thật: fetch chạy song song, kết quả được
// áp dụng tuần tự dưới mutex
type Session struct {
	mu       sync.Mutex
	machine  *Machine
	fetcher  Fetcher
	opts     SessionOptions
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	inflight int
	idle     chan struct{}
	closed   bool

	updateMu  sync.Mutex
	seq       uint64
	delivered uint64
}

// NewSession tạo mới Session
func NewSession(fetcher Fetcher, m *matcher.NameMatcher, opts SessionOptions, logger *zap.Logger) *Session {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Session{
		machine: NewMachine(m),
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		idle:    idle,
	}
}

// Hydrate nạp địa chỉ có sẵn và bắt đầu cascade
func (s *Session) Hydrate(addr models.AddressData) error {
	_, err := s.apply(Hydrate{Address: addr})
	return err
}

// Open mở selector, load lại nếu lần trước lỗi
func (s *Session) Open(level models.Level) error {
	_, err := s.apply(Open{Level: level})
	return err
}

// Select chọn option theo code
func (s *Session) Select(level models.Level, code string) error {
	_, err := s.apply(Select{Level: level, Code: code})
	return err
}

// Clear xóa giá trị một cấp và các cấp con
func (s *Session) Clear(level models.Level) error {
	_, err := s.apply(Clear{Level: level})
	return err
}

// Snapshot trạng thái hiện tại
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.View()
}

// Address giá trị địa chỉ hiện tại
func (s *Session) Address() models.AddressData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Address()
}

// Wait chờ tới khi không còn fetch nào đang chạy
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inflight == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Resolve hydrate rồi chờ cascade kết thúc
func (s *Session) Resolve(ctx context.Context, addr models.AddressData) (View, error) {
	if err := s.Hydrate(addr); err != nil {
		return View{}, err
	}
	if err := s.Wait(ctx); err != nil {
		return s.Snapshot(), err
	}
	return s.Snapshot(), nil
}

// Close hủy các fetch đang chạy; kết quả về sau bị bỏ qua
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Session) apply(ev Event) (Step, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Step{}, ErrSessionClosed
	}

	step, err := s.machine.Apply(ev)
	if err != nil {
		s.mu.Unlock()
		return step, err
	}

	for _, f := range step.Fetches {
		s.startFetch(f)
	}

	var (
		seq  uint64
		addr models.AddressData
	)
	if step.Changed {
		s.seq++
		seq = s.seq
		addr = s.machine.Address()
	}
	s.mu.Unlock()

	if step.Stale {
		s.logger.Debug("Bỏ qua kết quả fetch cũ")
	}
	if s.opts.OnResolve != nil {
		for _, r := range step.Resolutions {
			s.opts.OnResolve(r)
		}
	}
	for _, r := range step.Resolutions {
		s.logger.Debug("Đã resolve theo tên",
			zap.Stringer("level", r.Level),
			zap.String("code", r.Match.Record.Code),
			zap.String("strategy", string(r.Match.Strategy)))
	}
	if step.Changed {
		s.notify(seq, addr)
	}
	return step, nil
}

// startFetch phải được gọi khi đang giữ s.mu
func (s *Session) startFetch(f Fetch) {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	go s.runFetch(f)
}

func (s *Session) runFetch(f Fetch) {
	defer s.fetchDone()

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	records, err := s.fetcher.FetchOptions(ctx, f.Level, f.ParentKey)
	if s.ctx.Err() != nil {
		return
	}

	var ev Event
	if err != nil {
		s.logger.Warn("Lỗi load options",
			zap.Stringer("level", f.Level),
			zap.String("parent", f.ParentKey),
			zap.Error(err))
		ev = LoadFailed{Level: f.Level, Gen: f.Gen, Err: err}
	} else {
		s.logger.Debug("Đã load options",
			zap.Stringer("level", f.Level),
			zap.String("parent", f.ParentKey),
			zap.Int("count", len(records)),
			zap.Duration("took", time.Since(start)))
		ev = OptionsLoaded{Level: f.Level, Gen: f.Gen, Records: records}
	}

	step, applyErr := s.apply(ev)
	if applyErr != nil {
		if !errors.Is(applyErr, ErrSessionClosed) {
			s.logger.Error("Lỗi áp dụng kết quả fetch", zap.Error(applyErr))
		}
		return
	}
	// Chỉ đếm lỗi của fetch còn hiệu lực
	if err != nil && !step.Stale && s.opts.OnLoadFailed != nil {
		s.opts.OnLoadFailed(f.Level, err)
	}
}

func (s *Session) fetchDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

// notify gọi OnUpdate tuần tự, bỏ snapshot cũ hơn snapshot đã gửi
func (s *Session) notify(seq uint64, addr models.AddressData) {
	if s.opts.OnUpdate == nil {
		return
	}
	s.updateMu.Lock()
	defer s.updateMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq
	s.opts.OnUpdate(addr)
}
