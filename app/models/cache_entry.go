package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CacheEntry một response PSGC đã chuẩn hóa, lưu theo URL request
type CacheEntry struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Fingerprint  string             `bson:"fingerprint" json:"fingerprint,omitempty"` // sha256 của key
	Key          string             `bson:"key" json:"key"`                           // URL request
	Payload      []byte             `bson:"payload" json:"payload"`                   // JSON array đã chuẩn hóa
	StoredAt     time.Time          `bson:"stored_at" json:"stored_at"`               // Thời điểm lưu, dùng để check freshness
	LastAccessed time.Time          `bson:"last_accessed" json:"last_accessed,omitempty"`
	AccessCount  int                `bson:"access_count" json:"access_count,omitempty"`
}

// NewCacheEntry tạo mới một CacheEntry
func NewCacheEntry(key string, payload []byte, storedAt time.Time) *CacheEntry {
	return &CacheEntry{
		Key:          key,
		Payload:      payload,
		StoredAt:     storedAt,
		LastAccessed: storedAt,
		AccessCount:  1,
	}
}

// Age tuổi của entry tại thời điểm now
func (e *CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Clone copy entry, payload được copy riêng
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.Payload = append([]byte(nil), e.Payload...)
	return &c
}
