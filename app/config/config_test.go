package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resolver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Cleanup(func() { C = Defaults() })

	path := writeConfig(t, `
psgc:
  base_url: http://localhost:9000
cache:
  ttl: 90s
matcher:
  strictness: fuzzy
`)
	require.NoError(t, Load(path))

	assert.Equal(t, "http://localhost:9000", C.PSGC.BaseURL)
	assert.Equal(t, 90*time.Second, C.Cache.TTL.Std())
	assert.Equal(t, "fuzzy", C.Matcher.Strictness)
	// Field không khai báo giữ mặc định
	assert.Equal(t, 10*time.Second, C.PSGC.Timeout.Std())
	assert.Equal(t, 1000, C.Sessions.MaxSessions)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(func() { C = Defaults() })
	t.Setenv("MATCH_STRICTNESS", "strict")

	require.NoError(t, Load(writeConfig(t, "matcher:\n  strictness: fuzzy\n")))
	assert.Equal(t, "strict", C.Matcher.Strictness)
}

func TestLoad_Errors(t *testing.T) {
	t.Cleanup(func() { C = Defaults() })

	assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, Load(writeConfig(t, "cache:\n  ttl: soon\n")))
	assert.Equal(t, Defaults().Cache.TTL, C.Cache.TTL, "lỗi parse không đổi C")
}
