package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/app/requests"
	"github.com/psgc-resolver/app/responses"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/resolver"
	"go.uber.org/zap"
)

// AddressController controller resolve địa chỉ và quản lý form session
type AddressController struct {
	formService *services.FormSessionService
	cache       services.ICacheService
	waitTimeout time.Duration
	startedAt   time.Time
	logger      *zap.Logger
}

// NewAddressController tạo mới AddressController
func NewAddressController(formService *services.FormSessionService, cache services.ICacheService, waitTimeout time.Duration, logger *zap.Logger) *AddressController {
	if waitTimeout <= 0 {
		waitTimeout = 15 * time.Second
	}
	return &AddressController{
		formService: formService,
		cache:       cache,
		waitTimeout: waitTimeout,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// ResolveAddress reconcile địa chỉ đã lưu với danh sách PSGC
func (ac *AddressController) ResolveAddress(c *gin.Context) {
	var req requests.ResolveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}

	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), ac.waitTimeout)
	defer cancel()

	view, err := ac.formService.Resolve(ctx, req.Address, req.Strictness)
	if err != nil {
		ac.logger.Warn("Lỗi resolve địa chỉ", zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses.ResolveAddressResponse{
		Address:          view.Address,
		Flat:             view.Address.Flatten(),
		Complete:         view.Complete(),
		Levels:           view.Levels,
		Errors:           view.Errors,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// CreateForm mở form session mới
func (ac *AddressController) CreateForm(c *gin.Context) {
	var req requests.CreateFormRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c, err)
			return
		}
	}

	fs, err := ac.formService.Create(req.Address, req.Strictness)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ac.settled(c, fs))
}

// GetForm trạng thái hiện tại của form
func (ac *AddressController) GetForm(c *gin.Context) {
	fs, err := ac.formService.Get(c.Param("sessionID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, formResponse(fs, fs.Snapshot()))
}

// OpenLevel mở selector, load lại option nếu lần trước lỗi
func (ac *AddressController) OpenLevel(c *gin.Context) {
	var req requests.LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	ac.withSession(c, func(fs *services.FormSession) error {
		return fs.Open(req.Level)
	})
}

// SelectOption người dùng chọn option
func (ac *AddressController) SelectOption(c *gin.Context) {
	var req requests.SelectOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	ac.withSession(c, func(fs *services.FormSession) error {
		return fs.Select(req.Level, req.Code)
	})
}

// ClearLevel xóa giá trị một cấp và các cấp con
func (ac *AddressController) ClearLevel(c *gin.Context) {
	var req requests.LevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	ac.withSession(c, func(fs *services.FormSession) error {
		return fs.Clear(req.Level)
	})
}

// DeleteForm đóng form session
func (ac *AddressController) DeleteForm(c *gin.Context) {
	if err := ac.formService.Delete(c.Param("sessionID")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HealthCheck kiểm tra sức khỏe service
func (ac *AddressController) HealthCheck(c *gin.Context) {
	status := "healthy"
	cacheStatus := "healthy"
	if _, err := ac.cache.GetStats(c.Request.Context()); err != nil {
		cacheStatus = "unhealthy: " + err.Error()
		status = "degraded"
	}

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(ac.startedAt).Round(time.Second).String(),
		Version:   "1.0.0",
		Services: map[string]string{
			"resolver": "healthy",
			"cache":    cacheStatus,
		},
	})
}

func (ac *AddressController) withSession(c *gin.Context, action func(fs *services.FormSession) error) {
	fs, err := ac.formService.Get(c.Param("sessionID"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := action(fs); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ac.settled(c, fs))
}

// settled chờ fetch đang chạy trong giới hạn waitTimeout rồi trả snapshot;
// hết thời gian thì trả trạng thái đang load để client poll tiếp
func (ac *AddressController) settled(c *gin.Context, fs *services.FormSession) responses.FormSessionResponse {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ac.waitTimeout)
	defer cancel()

	if err := fs.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		ac.logger.Debug("Dừng chờ form session", zap.String("session_id", fs.ID), zap.Error(err))
	}
	return formResponse(fs, fs.Snapshot())
}

func formResponse(fs *services.FormSession, view resolver.View) responses.FormSessionResponse {
	return responses.FormSessionResponse{
		SessionID:  fs.ID,
		Strictness: string(fs.Strictness),
		Complete:   view.Complete(),
		Flat:       view.Address.Flatten(),
		View:       view,
	}
}
