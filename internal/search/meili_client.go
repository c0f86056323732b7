// Package search đẩy danh sách PSGC vào Meilisearch để tra cứu theo tên
package search

import (
	"fmt"
	"strings"

	ms "github.com/meilisearch/meilisearch-go"
)

// NewClient tạo Meilisearch client
func NewClient(url, key string) ms.ServiceManager {
	if key == "" {
		return ms.New(url)
	}
	return ms.New(url, ms.WithAPIKey(key))
}

// FilterLevelParent filter theo cấp và code cấp cha
func FilterLevelParent(level int, parentCode string) string {
	if parentCode == "" {
		return FilterLevel(level)
	}
	if level <= 0 {
		return fmt.Sprintf("parent_code = %q", parentCode)
	}
	return fmt.Sprintf("level = %d AND parent_code = %q", level, parentCode)
}

// FilterLevel filter theo cấp; level <= 0 là không lọc
func FilterLevel(level int) string {
	if level <= 0 {
		return ""
	}
	return fmt.Sprintf("level = %d", level)
}

// documentID id hợp lệ với Meilisearch (chữ, số, - và _)
func documentID(level string, code string) string {
	return level + "-" + strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '-', r == '_':
			return r
		}
		return '_'
	}, code)
}
