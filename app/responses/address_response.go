package responses

import (
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/internal/resolver"
)

// ListResponse response danh sách PSGC
type ListResponse struct {
	Level  string      `json:"level"`            // Cấp của danh sách
	Parent string      `json:"parent,omitempty"` // Code/tên cấp cha
	Count  int         `json:"count"`
	Data   interface{} `json:"data"`
}

// SearchResponse response tìm kiếm theo tên
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []models.Record `json:"results"`
}

// ResolveAddressResponse response resolve địa chỉ
type ResolveAddressResponse struct {
	Address          models.AddressData   `json:"address"`            // Địa chỉ sau reconcile
	Flat             models.FlatAddress   `json:"flat"`               // Dạng phẳng để lưu
	Complete         bool                 `json:"complete"`           // Cả bốn cấp đã resolve
	Levels           []resolver.LevelView `json:"levels"`             // Trạng thái từng cấp
	Errors           map[string]string    `json:"errors,omitempty"`   // Lỗi load theo field
	ProcessingTimeMs int64                `json:"processing_time_ms"` // Thời gian xử lý (ms)
}

// FormSessionResponse response trạng thái form session
type FormSessionResponse struct {
	SessionID  string             `json:"session_id"`
	Strictness string             `json:"strictness"`
	Complete   bool               `json:"complete"`
	Flat       models.FlatAddress `json:"flat"`
	View       resolver.View      `json:"view"`
}

// ErrorResponse response lỗi
type ErrorResponse struct {
	Error     string      `json:"error"`                // Mã lỗi
	Message   string      `json:"message"`              // Thông báo lỗi
	Details   interface{} `json:"details,omitempty"`    // Chi tiết lỗi
	Timestamp string      `json:"timestamp"`            // Thời gian xảy ra lỗi
	RequestID string      `json:"request_id,omitempty"` // ID của request
}

// SuccessResponse response thành công
type SuccessResponse struct {
	Success   bool        `json:"success"`        // Có thành công không
	Message   string      `json:"message"`        // Thông báo
	Data      interface{} `json:"data,omitempty"` // Dữ liệu
	Timestamp string      `json:"timestamp"`      // Thời gian
}

// HealthCheckResponse response kiểm tra sức khỏe
type HealthCheckResponse struct {
	Status    string            `json:"status"`    // Trạng thái sức khỏe
	Timestamp string            `json:"timestamp"` // Thời gian kiểm tra
	Uptime    string            `json:"uptime"`    // Thời gian hoạt động
	Version   string            `json:"version"`   // Phiên bản
	Services  map[string]string `json:"services"`  // Trạng thái các service
}
