package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration time.Duration đọc từ chuỗi yaml ("5m", "10s")
type Duration time.Duration

// UnmarshalYAML parse duration dạng chuỗi
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("duration không hợp lệ %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std chuyển về time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

type PSGCCfg struct {
	BaseURL   string   `yaml:"base_url" json:"base_url"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
	RateLimit float64  `yaml:"rate_limit" json:"rate_limit"`
	Burst     int      `yaml:"burst" json:"burst"`
	UserAgent string   `yaml:"user_agent" json:"user_agent"`
}

type CacheCfg struct {
	TTL             Duration `yaml:"ttl" json:"ttl"`
	L1Size          int      `yaml:"l1_size" json:"l1_size"`
	CleanupInterval Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

type MatcherCfg struct {
	Strictness      string  `yaml:"strictness" json:"strictness"`
	MinSubstringLen int     `yaml:"min_substring_len" json:"min_substring_len"`
	FuzzyThreshold  float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`
	JWWeight        float64 `yaml:"jw_weight" json:"jw_weight"`
	LevWeight       float64 `yaml:"lev_weight" json:"lev_weight"`
}

type SessionCfg struct {
	MaxSessions  int      `yaml:"max_sessions" json:"max_sessions"`
	TTL          Duration `yaml:"ttl" json:"ttl"`
	FetchTimeout Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	WaitTimeout  Duration `yaml:"wait_timeout" json:"wait_timeout"`
}

type WarmUpCfg struct {
	Schedule    string `yaml:"schedule" json:"schedule"`
	Depth       string `yaml:"depth" json:"depth"`
	Concurrency int    `yaml:"concurrency" json:"concurrency"`
}

type ResolverCfg struct {
	PSGC     PSGCCfg    `yaml:"psgc" json:"psgc"`
	Cache    CacheCfg   `yaml:"cache" json:"cache"`
	Matcher  MatcherCfg `yaml:"matcher" json:"matcher"`
	Sessions SessionCfg `yaml:"sessions" json:"sessions"`
	WarmUp   WarmUpCfg  `yaml:"warmup" json:"warmup"`
}

var C = Defaults()

// Defaults giá trị mặc định khi file config thiếu field
func Defaults() ResolverCfg {
	return ResolverCfg{
		PSGC: PSGCCfg{
			BaseURL:   "https://psgc.gitlab.io/api",
			Timeout:   Duration(10 * time.Second),
			UserAgent: "psgc-resolver/1.0",
		},
		Cache: CacheCfg{
			TTL:             Duration(5 * time.Minute),
			L1Size:          10000,
			CleanupInterval: Duration(time.Minute),
		},
		Matcher: MatcherCfg{
			Strictness:      "standard",
			MinSubstringLen: 3,
			FuzzyThreshold:  0.88,
			JWWeight:        0.7,
			LevWeight:       0.3,
		},
		Sessions: SessionCfg{
			MaxSessions:  1000,
			TTL:          Duration(30 * time.Minute),
			FetchTimeout: Duration(10 * time.Second),
			WaitTimeout:  Duration(15 * time.Second),
		},
		WarmUp: WarmUpCfg{
			Schedule:    "@every 4m",
			Depth:       "city",
			Concurrency: 4,
		},
	}
}

func Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return err
	}
	ApplyEnv(&cfg)
	C = cfg
	return nil
}

// ApplyEnv ghi đè config bằng biến môi trường
func ApplyEnv(cfg *ResolverCfg) {
	if v := os.Getenv("MATCH_STRICTNESS"); v != "" {
		cfg.Matcher.Strictness = v
	}
	if v := os.Getenv("PSGC_BASE_URL"); v != "" {
		cfg.PSGC.BaseURL = v
	}
}

func RequestTimeout() time.Duration { return C.Sessions.WaitTimeout.Std() }
