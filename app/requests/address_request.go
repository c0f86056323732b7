package requests

import "github.com/psgc-resolver/app/models"

// ResolveAddressRequest request resolve địa chỉ đã lưu (edit mode)
type ResolveAddressRequest struct {
	Address    models.AddressData `json:"address"`                                                              // Địa chỉ dạng tên hoặc code
	Strictness string             `json:"strictness,omitempty" binding:"omitempty,oneof=strict standard fuzzy"` // Mức độ matching
}

// CreateFormRequest request mở form địa chỉ
type CreateFormRequest struct {
	Address    *models.AddressData `json:"address,omitempty"` // Có thì hydrate, không thì form trống
	Strictness string              `json:"strictness,omitempty" binding:"omitempty,oneof=strict standard fuzzy"`
}

// LevelRequest request thao tác trên một cấp (open, clear)
type LevelRequest struct {
	Level models.Level `json:"level" binding:"required"` // region | province | city | barangay
}

// SelectOptionRequest request chọn option
type SelectOptionRequest struct {
	Level models.Level `json:"level" binding:"required"`
	Code  string       `json:"code" binding:"required"` // Code của option đã load
}

// WarmUpRequest request warm up cache
type WarmUpRequest struct {
	Depth       models.Level `json:"depth,omitempty"`       // Cấp sâu nhất cần fetch, mặc định city
	Concurrency int          `json:"concurrency,omitempty" binding:"omitempty,min=1,max=32"`
}

// InvalidateCacheRequest request xóa cache một danh sách
type InvalidateCacheRequest struct {
	Level  models.Level `json:"level" binding:"required"`
	Parent string       `json:"parent,omitempty"` // Code hoặc tên cấp cha, trống với region
}
