package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/sales-insight/internal/aggregation"
	"github.com/garyjia/sales-insight/internal/application/service"
	"github.com/garyjia/sales-insight/internal/domain/entity"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services       Services
	health         HealthFunc
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, maxUploadBytes int64, logger Logger) *Handlers {
	return &Handlers{
		services:       services,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string      `json:"status"`
	Timestamp  string      `json:"timestamp"`
	Version    string      `json:"version"`
	Components interface{} `json:"components,omitempty"`
}

// ImportForm holds the non-file fields of an import upload
type ImportForm struct {
	PeriodMonth       int   `form:"periodMonth" binding:"required"`
	PeriodYear        int   `form:"periodYear" binding:"required"`
	OverwriteExisting bool  `form:"overwriteExisting"`
	Strict            *bool `form:"strict"`
}

// PageQuery holds pagination parameters
type PageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// ListDishesQuery holds catalog filters
type ListDishesQuery struct {
	PageQuery
	Linked   *bool  `form:"linked"`
	Archived *bool  `form:"archived"`
	Search   string `form:"search"`
	Category string `form:"category"`
}

// LinkDishRequest sets a recipe, or clears it with null
type LinkDishRequest struct {
	RecipeID *string `json:"recipeId"`
}

// BatchLinkRequest links many dishes at once
type BatchLinkRequest struct {
	Links []service.LinkRequest `json:"links" binding:"required"`
}

// ArchiveDishRequest toggles the archive flag
type ArchiveDishRequest struct {
	Archived *bool `json:"archived" binding:"required"`
}

// CreateExclusionWordRequest adds an exclusion word
type CreateExclusionWordRequest struct {
	Word string `json:"word" binding:"required"`
	Type string `json:"type"`
}

// DashboardQuery selects the dashboard bucket
type DashboardQuery struct {
	Granularity string `form:"granularity"`
	PeriodMonth int    `form:"periodMonth"`
	PeriodYear  int    `form:"periodYear"`
	Category    string `form:"category"`
	RecipeID    string `form:"recipeId"`
	TopN        int    `form:"topN"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	status := http.StatusOK
	if h.health != nil {
		healthy, details := h.health(c.Request.Context())
		response.Components = details
		if !healthy {
			response.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, Response{
		Success: status == http.StatusOK,
		Data:    response,
	})
}

// UploadPreview handles POST /sales-analysis/upload-preview
func (h *Handlers) UploadPreview(c *gin.Context) {
	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.services.Imports.Preview(c.Request.Context(), upload)
	if err != nil {
		h.writeError(c, "preview", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// Import handles POST /sales-analysis/import
func (h *Handlers) Import(c *gin.Context) {
	var form ImportForm
	if err := c.ShouldBind(&form); err != nil {
		h.logger.Error("Invalid import form", "error", err)
		badRequest(c, "periodMonth and periodYear are required")
		return
	}

	upload, ok := h.readUpload(c)
	if !ok {
		return
	}

	result, err := h.services.Imports.Import(c.Request.Context(), service.ImportRequest{
		LocationID: locationID(c),
		Period:     entity.Period{Month: form.PeriodMonth, Year: form.PeriodYear},
		Upload:     upload,
		Overwrite:  form.OverwriteExisting,
		Strict:     form.Strict,
	})
	if err != nil {
		h.writeError(c, "import", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// ListImports handles GET /sales-analysis/imports
func (h *Handlers) ListImports(c *gin.Context) {
	var q PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	list, err := h.services.Imports.ListImports(c.Request.Context(), locationID(c), q.Limit, q.Offset)
	if err != nil {
		h.writeError(c, "list imports", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    list,
	})
}

// DeleteImport handles DELETE /sales-analysis/imports/:id
func (h *Handlers) DeleteImport(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Imports.DeleteImport(c.Request.Context(), locationID(c), id); err != nil {
		h.writeError(c, "delete import", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"id": id},
	})
}

// ListDishes handles GET /sales-analysis/dishes
func (h *Handlers) ListDishes(c *gin.Context) {
	var q ListDishesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	list, err := h.services.Dishes.ListDishes(c.Request.Context(), locationID(c), service.DishQuery{
		Linked:   q.Linked,
		Archived: q.Archived,
		Search:   q.Search,
		Category: q.Category,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		h.writeError(c, "list dishes", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    list,
	})
}

// ExportDishes handles GET /sales-analysis/dishes/export
func (h *Handlers) ExportDishes(c *gin.Context) {
	loc := locationID(c)
	data, err := h.services.Dishes.ExportCatalog(c.Request.Context(), loc)
	if err != nil {
		h.writeError(c, "export dishes", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="piatti-%s.xlsx"`, loc))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// LinkDish handles PUT /sales-analysis/dishes/:id/link
func (h *Handlers) LinkDish(c *gin.Context) {
	var req LinkDishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	dish, err := h.services.Dishes.LinkDish(c.Request.Context(), locationID(c), c.Param("id"), req.RecipeID)
	if err != nil {
		h.writeError(c, "link dish", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    dish,
	})
}

// BatchLinkDishes handles PUT /sales-analysis/dishes/batch-link
func (h *Handlers) BatchLinkDishes(c *gin.Context) {
	var req BatchLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	result, err := h.services.Dishes.BatchLink(c.Request.Context(), locationID(c), req.Links)
	if err != nil {
		h.writeError(c, "batch link", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// ArchiveDish handles PUT /sales-analysis/dishes/:id/archive
func (h *Handlers) ArchiveDish(c *gin.Context) {
	var req ArchiveDishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "archived is required")
		return
	}

	dish, err := h.services.Dishes.ArchiveDish(c.Request.Context(), locationID(c), c.Param("id"), *req.Archived)
	if err != nil {
		h.writeError(c, "archive dish", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    dish,
	})
}

// RecomputeTotals handles POST /sales-analysis/dishes/recompute-totals
func (h *Handlers) RecomputeTotals(c *gin.Context) {
	n, err := h.services.Dishes.RecomputeTotals(c.Request.Context(), locationID(c))
	if err != nil {
		h.writeError(c, "recompute totals", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"updated": n},
	})
}

// ListExclusionWords handles GET /sales-analysis/exclusion-words
func (h *Handlers) ListExclusionWords(c *gin.Context) {
	words, err := h.services.Exclusions.ListWords(c.Request.Context(), locationID(c))
	if err != nil {
		h.writeError(c, "list exclusion words", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    words,
	})
}

// CreateExclusionWord handles POST /sales-analysis/exclusion-words
func (h *Handlers) CreateExclusionWord(c *gin.Context) {
	var req CreateExclusionWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "word is required")
		return
	}

	word, err := h.services.Exclusions.CreateWord(c.Request.Context(), locationID(c), req.Word, req.Type)
	if err != nil {
		h.writeError(c, "create exclusion word", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    word,
	})
}

// DeleteExclusionWord handles DELETE /sales-analysis/exclusion-words/:id
func (h *Handlers) DeleteExclusionWord(c *gin.Context) {
	id := c.Param("id")
	if err := h.services.Exclusions.DeleteWord(c.Request.Context(), locationID(c), id); err != nil {
		h.writeError(c, "delete exclusion word", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    gin.H{"id": id},
	})
}

// Dashboard handles GET /sales-analysis/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	var q DashboardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}

	now := time.Now()
	if q.Granularity == "" {
		q.Granularity = entity.GranularityMonth
	}
	if q.PeriodYear == 0 {
		q.PeriodYear = now.Year()
	}
	if q.PeriodMonth == 0 {
		q.PeriodMonth = int(now.Month())
	}

	dashboard, err := h.services.Dashboard.Dashboard(c.Request.Context(), locationID(c), aggregation.Query{
		Granularity: q.Granularity,
		Month:       q.PeriodMonth,
		Year:        q.PeriodYear,
		Category:    q.Category,
		RecipeID:    q.RecipeID,
		TopN:        q.TopN,
	})
	if err != nil {
		h.writeError(c, "dashboard", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    dashboard,
	})
}

// ListRecipes handles GET /sales-analysis/recipes
func (h *Handlers) ListRecipes(c *gin.Context) {
	recipes, err := h.services.Dishes.ListRecipes(c.Request.Context(), locationID(c))
	if err != nil {
		h.writeError(c, "list recipes", err)
		return
	}
	if recipes == nil {
		recipes = []*entity.Recipe{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    recipes,
	})
}

// readUpload reads the multipart "file" field, writing the error response
// itself when the upload is missing or too large
func (h *Handlers) readUpload(c *gin.Context) (service.Upload, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return service.Upload{}, false
	}
	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes),
		})
		return service.Upload{}, false
	}

	f, err := header.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", "file_name", header.Filename, "error", err)
		badRequest(c, "failed to read file")
		return service.Upload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		h.logger.Error("Failed to read upload", "file_name", header.Filename, "error", err)
		badRequest(c, "failed to read file")
		return service.Upload{}, false
	}

	return service.Upload{FileName: header.Filename, Data: data}, true
}
