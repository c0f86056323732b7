package matcher

import (
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/normalizer"
	"github.com/xrash/smetrics"
)

// MatchStrategy enum cho các chiến lược matching
type MatchStrategy string

const (
	MatchStrategyExact     MatchStrategy = "exact"
	MatchStrategyCode      MatchStrategy = "code"
	MatchStrategyAscii     MatchStrategy = "ascii_exact"
	MatchStrategySubstring MatchStrategy = "substring"
	MatchStrategyFuzzy     MatchStrategy = "fuzzy"
)

// Strictness mức độ chặt của matching
type Strictness string

const (
	// StrictnessStrict chỉ chấp nhận các tier so sánh bằng
	StrictnessStrict Strictness = "strict"
	// StrictnessStandard thêm substring containment (mặc định)
	StrictnessStandard Strictness = "standard"
	// StrictnessFuzzy thêm Jaro-Winkler/Levenshtein
	StrictnessFuzzy Strictness = "fuzzy"
)

// ParseStrictness parse strictness từ config; chuỗi rỗng là standard
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictnessStandard:
		return StrictnessStandard, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	case StrictnessFuzzy:
		return StrictnessFuzzy, nil
	}
	return "", fmt.Errorf("strictness không hợp lệ: %q", s)
}

// Config cấu hình NameMatcher
type Config struct {
	Strictness      Strictness
	MinSubstringLen int     // độ dài tối thiểu của chuỗi ngắn hơn khi so substring
	FuzzyThreshold  float64 // điểm tối thiểu cho tier fuzzy
	JWWeight        float64
	LevWeight       float64
}

// DefaultConfig cấu hình mặc định
func DefaultConfig() Config {
	return Config{
		Strictness:      StrictnessStandard,
		MinSubstringLen: 3,
		FuzzyThreshold:  0.88,
		JWWeight:        0.7,
		LevWeight:       0.3,
	}
}

// Match kết quả match một tên với danh sách option
type Match struct {
	Record   models.Record `json:"record"`
	Strategy MatchStrategy `json:"strategy"`
	Score    float64       `json:"score"`
}

// NameMatcher so khớp tên người dùng nhập với danh sách option PSGC
type NameMatcher struct {
	cfg Config
}

// NewNameMatcher tạo mới NameMatcher
func NewNameMatcher(cfg Config) *NameMatcher {
	def := DefaultConfig()
	if cfg.Strictness == "" {
		cfg.Strictness = def.Strictness
	}
	if cfg.MinSubstringLen <= 0 {
		cfg.MinSubstringLen = def.MinSubstringLen
	}
	if cfg.FuzzyThreshold <= 0 {
		cfg.FuzzyThreshold = def.FuzzyThreshold
	}
	if cfg.JWWeight == 0 && cfg.LevWeight == 0 {
		cfg.JWWeight, cfg.LevWeight = def.JWWeight, def.LevWeight
	}
	return &NameMatcher{cfg: cfg}
}

// Strictness trả về strictness đang dùng
func (m *NameMatcher) Strictness() Strictness {
	return m.cfg.Strictness
}

// Match chạy lần lượt exact → code → ascii → substring → fuzzy, dừng ở tier đầu tiên có kết quả
func (m *NameMatcher) Match(value string, options []models.Record) (Match, bool) {
	query := strings.TrimSpace(value)
	if query == "" || len(options) == 0 {
		return Match{}, false
	}

	if rec, ok := m.tryExactMatch(query, options); ok {
		return Match{Record: rec, Strategy: MatchStrategyExact, Score: 1}, true
	}
	if rec, ok := m.tryCodeMatch(query, options); ok {
		return Match{Record: rec, Strategy: MatchStrategyCode, Score: 1}, true
	}
	if rec, ok := m.tryAsciiMatch(query, options); ok {
		return Match{Record: rec, Strategy: MatchStrategyAscii, Score: 1}, true
	}
	if m.cfg.Strictness == StrictnessStrict {
		return Match{}, false
	}
	if match, ok := m.trySubstringMatch(query, options); ok {
		return match, true
	}
	if m.cfg.Strictness != StrictnessFuzzy {
		return Match{}, false
	}
	return m.tryFuzzyMatch(query, options)
}

// tryExactMatch so sánh tên không phân biệt hoa thường
func (m *NameMatcher) tryExactMatch(query string, options []models.Record) (models.Record, bool) {
	for _, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt.Name), query) {
			return opt, true
		}
	}
	return models.Record{}, false
}

// tryCodeMatch giá trị chính là mã PSGC
func (m *NameMatcher) tryCodeMatch(query string, options []models.Record) (models.Record, bool) {
	for _, opt := range options {
		if opt.Code != "" && opt.Code == query {
			return opt, true
		}
	}
	return models.Record{}, false
}

// tryAsciiMatch so sánh sau khi bỏ dấu, dấu câu và viết tắt
func (m *NameMatcher) tryAsciiMatch(query string, options []models.Record) (models.Record, bool) {
	folded := normalizer.Fold(query)
	if folded == "" {
		return models.Record{}, false
	}
	for _, opt := range options {
		if normalizer.Fold(opt.Name) == folded {
			return opt, true
		}
	}
	return models.Record{}, false
}

// trySubstringMatch tên này chứa tên kia; nhiều ứng viên thì lấy điểm tương đồng cao nhất
func (m *NameMatcher) trySubstringMatch(query string, options []models.Record) (Match, bool) {
	q := strings.ToLower(query)
	if len([]rune(q)) < m.cfg.MinSubstringLen {
		return Match{}, false
	}

	best := Match{}
	found := false
	for _, opt := range options {
		name := strings.ToLower(strings.TrimSpace(opt.Name))
		if len([]rune(name)) < m.cfg.MinSubstringLen {
			continue
		}
		if !strings.Contains(name, q) && !strings.Contains(q, name) {
			continue
		}
		score := m.similarity(q, name)
		if !found || score > best.Score {
			best = Match{Record: opt, Strategy: MatchStrategySubstring, Score: score}
			found = true
		}
	}
	return best, found
}

// tryFuzzyMatch Jaro-Winkler + Levenshtein trên tên đã fold
func (m *NameMatcher) tryFuzzyMatch(query string, options []models.Record) (Match, bool) {
	q := normalizer.Fold(query)
	if q == "" {
		return Match{}, false
	}

	best := Match{}
	found := false
	for _, opt := range options {
		score := m.similarity(q, normalizer.Fold(opt.Name))
		if score < m.cfg.FuzzyThreshold {
			continue
		}
		if !found || score > best.Score {
			best = Match{Record: opt, Strategy: MatchStrategyFuzzy, Score: score}
			found = true
		}
	}
	return best, found
}

// similarity điểm kết hợp Jaro-Winkler và Levenshtein chuẩn hóa theo độ dài
func (m *NameMatcher) similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	jaroScore := smetrics.JaroWinkler(a, b, 0.7, 4)

	levDist := levenshtein.ComputeDistance(a, b)
	maxLen := math.Max(float64(len([]rune(a))), float64(len([]rune(b))))
	levScore := 1.0 - float64(levDist)/maxLen

	total := m.cfg.JWWeight + m.cfg.LevWeight
	return (m.cfg.JWWeight*jaroScore + m.cfg.LevWeight*levScore) / total
}
