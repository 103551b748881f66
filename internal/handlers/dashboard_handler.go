package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"products-dashboard/internal/export"
	"products-dashboard/internal/middleware"
	"products-dashboard/internal/models"
	"products-dashboard/internal/services"
	"products-dashboard/internal/viewstate"
)

type DashboardHandler struct {
	service *services.DashboardService
	now     func() time.Time
}

func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service, now: time.Now}
}

// RegisterRoutes mounts the dashboard API on group
func (h *DashboardHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/view", h.GetView)
	group.POST("/search", h.Search)
	group.POST("/sort", h.Sort)
	group.POST("/page-size", h.SetPageSize)
	group.POST("/page", h.GoToPage)
	group.POST("/reload", h.Reload)
	group.GET("/export", h.Export)
	group.GET("/categories", h.GetCategories)
	group.GET("/audit", h.GetAuditTrail)

	products := group.Group("/products")
	{
		products.POST("", h.CreateProduct)
		products.GET("/:id", h.GetProduct)
		products.GET("/:id/edit-form", h.GetEditForm)
		products.PUT("/:id", h.UpdateProduct)
	}
}

func viewResponse(view viewstate.PageView, changed *bool) models.ViewResponse {
	pagination := view.Pagination
	return models.ViewResponse{
		Success:    true,
		Data:       view.Items,
		Pagination: &pagination,
		Search:     view.Search,
		Sort:       view.Sort,
		Summary:    view.Summary(),
		Indicators: view.SortIndicators(),
		Changed:    changed,
	}
}

// GetView returns the current page
// @Summary Get current view
// @Description Get the visible page of the session's dashboard with pagination metadata
// @Tags Dashboard
// @Produce json
// @Success 200 {object} models.ViewResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /dashboard/view [get]
func (h *DashboardHandler) GetView(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view, nil))
}

// Search filters products by title
// @Summary Search products
// @Description Case-insensitive substring match on the title; resets to page 1
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body models.SearchRequest true "Search term"
// @Success 200 {object} models.ViewResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /dashboard/search [post]
func (h *DashboardHandler) Search(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error(), "term")
		return
	}

	view, err := h.service.Search(c.Request.Context(), middleware.GetSessionID(c), req.Term)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view, nil))
}

// Sort sorts by a column, toggling direction on repeat
// @Summary Sort products
// @Description Sort by column; the same column flips direction, a new column sorts ascending
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body models.SortRequest true "Column"
// @Success 200 {object} models.ViewResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /dashboard/sort [post]
func (h *DashboardHandler) Sort(c *gin.Context) {
	var req models.SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error(), "column")
		return
	}

	view, err := h.service.Sort(c.Request.Context(), middleware.GetSessionID(c), req.Column)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view, nil))
}

// SetPageSize changes the number of items per page
// @Summary Set page size
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body models.PageSizeRequest true "Items per page"
// @Success 200 {object} models.ViewResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /dashboard/page-size [post]
func (h *DashboardHandler) SetPageSize(c *gin.Context) {
	var req models.PageSizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error(), "itemsPerPage")
		return
	}

	view, err := h.service.SetItemsPerPage(c.Request.Context(), middleware.GetSessionID(c), *req.ItemsPerPage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view, nil))
}

// GoToPage navigates to a page
// @Summary Go to page
// @Description Out-of-range pages leave the view unchanged and return changed=false
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param request body models.PageRequest true "Page"
// @Success 200 {object} models.ViewResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /dashboard/page [post]
func (h *DashboardHandler) GoToPage(c *gin.Context) {
	var req models.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error(), "page")
		return
	}

	view, changed, err := h.service.GoToPage(c.Request.Context(), middleware.GetSessionID(c), *req.Page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view, &changed))
}

// Reload re-reads the snapshot
// @Summary Reload snapshot
// @Description Re-read the product snapshot bypassing the cache; search and sort are kept
// @Tags Dashboard
// @Produce json
// @Success 200 {object} models.ViewResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /dashboard/reload [post]
func (h *DashboardHandler) Reload(c *gin.Context) {
	view, err := h.service.Reload(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewResponse(view, nil))
}

// GetProduct opens the detail view
// @Summary Get product detail
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.ProductResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dashboard/products/{id} [get]
func (h *DashboardHandler) GetProduct(c *gin.Context) {
	id := models.NormalizeID(c.Param("id"))

	product, err := h.service.Detail(c.Request.Context(), middleware.GetSessionID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: &product})
}

// GetEditForm returns the edit form pre-filled from a product
// @Summary Get edit form
// @Tags Products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.EditFormResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /dashboard/products/{id}/edit-form [get]
func (h *DashboardHandler) GetEditForm(c *gin.Context) {
	id := models.NormalizeID(c.Param("id"))

	form, err := h.service.EditForm(c.Request.Context(), middleware.GetSessionID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.EditFormResponse{Success: true, Data: form})
}

// UpdateProduct updates a product through the remote API
// @Summary Update product
// @Description Send the change to the remote API, then replace the record in place
// @Tags Products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param product body models.ProductPayload true "Product data"
// @Success 200 {object} models.ProductResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /dashboard/products/{id} [put]
func (h *DashboardHandler) UpdateProduct(c *gin.Context) {
	id := models.NormalizeID(c.Param("id"))
	if id == "" {
		respondValidationError(c, "Product ID is required", "id")
		return
	}

	var req models.ProductPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error(), "")
		return
	}

	product, _, err := h.service.Update(c.Request.Context(), middleware.GetSessionID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Product updated successfully"
	c.JSON(http.StatusOK, models.ProductResponse{Success: true, Data: product, Message: &message})
}

// CreateProduct creates a product through the remote API
// @Summary Create product
// @Description Send a new product to the remote API, then prepend it to the dataset
// @Tags Products
// @Accept json
// @Produce json
// @Param product body models.ProductPayload true "Product data"
// @Success 201 {object} models.ProductResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /dashboard/products [post]
func (h *DashboardHandler) CreateProduct(c *gin.Context) {
	var req models.ProductPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error(), "")
		return
	}

	product, _, err := h.service.Create(c.Request.Context(), middleware.GetSessionID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Product created successfully"
	c.JSON(http.StatusCreated, models.ProductResponse{Success: true, Data: product, Message: &message})
}

// Export downloads the visible page
// @Summary Export current page
// @Description Download only the visible page as CSV or XLSX
// @Tags Dashboard
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} models.ErrorResponse
// @Router /dashboard/export [get]
func (h *DashboardHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", export.FormatCSV)
	contentType, err := export.ContentType(format)
	if err != nil {
		respondValidationError(c, err.Error(), "format")
		return
	}

	result, err := h.service.Export(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	var data []byte
	switch format {
	case export.FormatXLSX:
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, result.Items); err != nil {
			respondError(c, err)
			return
		}
		data = buf.Bytes()
	default:
		data = []byte(result.CSV)
	}

	filename := export.FileName(result.Page, format, h.now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, data)
}

// GetCategories lists the remote categories
// @Summary Get categories
// @Tags Categories
// @Produce json
// @Success 200 {object} models.CategoryListResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /dashboard/categories [get]
func (h *DashboardHandler) GetCategories(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "FETCH_FAILED",
				Message: "Failed to retrieve categories",
			},
			RequestID: middleware.GetRequestID(c),
		})
		return
	}
	c.JSON(http.StatusOK, models.CategoryListResponse{Success: true, Data: categories})
}

// GetAuditTrail lists recent dashboard mutations
// @Summary Get audit trail
// @Tags Audit
// @Produce json
// @Param productId query string false "Filter by product ID"
// @Param limit query int false "Max entries" default(50)
// @Success 200 {object} models.AuditListResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /dashboard/audit [get]
func (h *DashboardHandler) GetAuditTrail(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	productID := models.NormalizeID(c.Query("productId"))

	entries, err := h.service.AuditTrail(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.AuditListResponse{Success: true, Data: entries})
}
