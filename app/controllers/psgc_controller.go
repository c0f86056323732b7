package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psgc-resolver/app/models"
	"github.com/psgc-resolver/app/responses"
	"github.com/psgc-resolver/app/services"
	"github.com/psgc-resolver/internal/search"
	"go.uber.org/zap"
)

// PSGCSearcher tìm bản ghi PSGC theo tên
type PSGCSearcher interface {
	Search(ctx context.Context, query string, level models.Level, parentCode string, limit int) ([]search.Document, error)
}

// PSGCController controller đọc danh sách PSGC
type PSGCController struct {
	psgcService *services.PSGCService
	searcher    PSGCSearcher
	logger      *zap.Logger
}

// NewPSGCController tạo mới PSGCController; searcher có thể nil
func NewPSGCController(psgcService *services.PSGCService, searcher PSGCSearcher, logger *zap.Logger) *PSGCController {
	return &PSGCController{
		psgcService: psgcService,
		searcher:    searcher,
		logger:      logger,
	}
}

// GetRegions danh sách region
func (pc *PSGCController) GetRegions(c *gin.Context) {
	regions, err := pc.psgcService.GetRegions(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.ListResponse{Level: models.LevelRegion.Plural(), Count: len(regions), Data: regions})
}

// GetProvinces danh sách province của một region (code hoặc tên)
func (pc *PSGCController) GetProvinces(c *gin.Context) {
	region := c.Param("region")
	provinces, err := pc.psgcService.GetProvincesByRegion(c.Request.Context(), region)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.ListResponse{Level: models.LevelProvince.Plural(), Parent: region, Count: len(provinces), Data: provinces})
}

// GetCitiesMunicipalities danh sách city/municipality của một province
func (pc *PSGCController) GetCitiesMunicipalities(c *gin.Context) {
	province := c.Param("province")
	cities, err := pc.psgcService.GetCitiesMunicipalitiesByProvince(c.Request.Context(), province)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.ListResponse{Level: models.LevelCity.Plural(), Parent: province, Count: len(cities), Data: cities})
}

// GetBarangays danh sách barangay của một city/municipality
func (pc *PSGCController) GetBarangays(c *gin.Context) {
	city := c.Param("city")
	barangays, err := pc.psgcService.GetBarangaysByCityMunicipality(c.Request.Context(), city)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, responses.ListResponse{Level: models.LevelBarangay.Plural(), Parent: city, Count: len(barangays), Data: barangays})
}

// Search tìm theo tên trong search index
func (pc *PSGCController) Search(c *gin.Context) {
	if pc.searcher == nil {
		respondError(c, http.StatusServiceUnavailable, "SEARCH_DISABLED", "Search index chưa được bật")
		return
	}

	query := c.Query("q")
	if query == "" {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Thiếu tham số q")
		return
	}

	var level models.Level
	if raw := c.Query("level"); raw != "" {
		parsed, err := models.ParseLevel(raw)
		if err != nil {
			invalidRequest(c, err)
			return
		}
		level = parsed
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	docs, err := pc.searcher.Search(c.Request.Context(), query, level, c.Query("parent"), limit)
	if err != nil {
		pc.logger.Error("Lỗi tìm kiếm PSGC", zap.Error(err), zap.String("query", query))
		respondError(c, http.StatusBadGateway, "SEARCH_ERROR", err.Error())
		return
	}

	results := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.Record())
	}
	c.JSON(http.StatusOK, responses.SearchResponse{Query: query, Results: results})
}
