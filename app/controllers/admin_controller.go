package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/app/requests"
	"github.com/psgc-resolver/app/responses"
	"github.com/psgc-resolver/app/services"
	"go.uber.org/zap"
)

// AdminController controller xử lý các request admin
type AdminController struct {
	adminService *services.AdminService
	logger       *zap.Logger
}

// NewAdminController tạo mới AdminController
func NewAdminController(adminService *services.AdminService, logger *zap.Logger) *AdminController {
	return &AdminController{
		adminService: adminService,
		logger:       logger,
	}
}

// WarmUpCache fetch trước cây PSGC vào cache
func (ac *AdminController) WarmUpCache(c *gin.Context) {
	var req requests.WarmUpRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, err)
			return
		}
	}
	if req.Depth == 0 {
		req.Depth = models.LevelCity
	}

	result, err := ac.adminService.WarmUp(c.Request.Context(), req.Depth, req.Concurrency)
	if err != nil {
		ac.logger.Error("Lỗi warm up cache", zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   len(result.Failures) == 0,
		Message:   "Warm up cache hoàn thành",
		Data:      result,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// InvalidateCache xóa cache của một danh sách
func (ac *AdminController) InvalidateCache(c *gin.Context) {
	var req requests.InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	if err := ac.adminService.InvalidateCache(c.Request.Context(), req.Level, req.Parent); err != nil {
		respondError(c, http.StatusBadRequest, "INVALIDATE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Cache đã được invalidate",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// ClearCache xóa toàn bộ cache
func (ac *AdminController) ClearCache(c *gin.Context) {
	if err := ac.adminService.ClearCache(c.Request.Context()); err != nil {
		ac.logger.Error("Lỗi clear cache", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "CACHE_ERROR", err.Error())
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Cache đã được xóa",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// GetStats thống kê hệ thống
func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.adminService.GetSystemStats(c.Request.Context())
	if err != nil {
		ac.logger.Error("Lỗi lấy thống kê", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "STATS_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportData export một danh sách PSGC
func (ac *AdminController) ExportData(c *gin.Context) {
	level, err := models.ParseLevel(c.Param("level"))
	if err != nil {
		invalidRequest(c, err)
		return
	}
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Chỉ hỗ trợ json hoặc csv")
		return
	}
	parent := c.Query("parent")

	data, err := ac.adminService.ExportData(c.Request.Context(), level, parent, format)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("psgc_%s_%s.%s", level.Plural(), time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))

	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}
	c.Data(http.StatusOK, contentType, data)
}
