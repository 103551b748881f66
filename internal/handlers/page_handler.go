package handlers

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"products-dashboard/internal/middleware"
	"products-dashboard/internal/models"
	"products-dashboard/internal/services"
	"products-dashboard/internal/viewstate"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	DashboardTemplate = "dashboard.html"

	TitleMaxLength   = 50
	placeholderThumb = "https://via.placeholder.com/60"
	placeholderLarge = "https://via.placeholder.com/400"
	maxExtraImages   = 3
)

// PageSizes are the options offered by the page size selector
var PageSizes = []int{5, 10, 20, 50}

type columnHeader struct {
	Key       string
	Label     string
	Indicator string
}

type pageData struct {
	View      viewstate.PageView
	Summary   string
	Columns   []columnHeader
	PageSizes []int
	PrevPage  int
	NextPage  int
	Detail    *models.Product
	Error     string
}

// LoadTemplates parses the embedded dashboard templates
func LoadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"truncate":    truncate,
		"thumbnail":   thumbnail,
		"largeImage":  largeImage,
		"extraImages": extraImages,
		"orNA":        orNA,
		"describe":    describe,
		"formatTime":  formatTime,
		"arrow":       arrow,
	}).ParseFS(templateFS, "templates/*.html")
}

type PageHandler struct {
	service *services.DashboardService
}

func NewPageHandler(service *services.DashboardService) *PageHandler {
	return &PageHandler{service: service}
}

// Dashboard renders the product table. The query parameters reload, search,
// perPage, sort and page drive the same operations as the JSON API and are
// followed by a redirect so a browser refresh never repeats them.
func (h *PageHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := middleware.GetSessionID(c)

	acted := false
	var actionErr error
	keep := func(err error) {
		acted = true
		if err != nil && actionErr == nil {
			actionErr = err
		}
	}

	if _, ok := c.GetQuery("reload"); ok {
		_, err := h.service.Reload(ctx, sessionID)
		keep(err)
	}
	if term, ok := c.GetQuery("search"); ok {
		_, err := h.service.Search(ctx, sessionID, term)
		keep(err)
	}
	if raw, ok := c.GetQuery("perPage"); ok {
		n, err := strconv.Atoi(raw)
		if err == nil {
			_, err = h.service.SetItemsPerPage(ctx, sessionID, n)
		} else {
			err = viewstate.ErrInvalidPageSize
		}
		keep(err)
	}
	if column, ok := c.GetQuery("sort"); ok {
		_, err := h.service.Sort(ctx, sessionID, column)
		keep(err)
	}
	if raw, ok := c.GetQuery("page"); ok {
		if page, err := strconv.Atoi(raw); err == nil {
			_, _, err = h.service.GoToPage(ctx, sessionID, page)
			keep(err)
		} else {
			acted = true
		}
	}

	detailID := models.NormalizeID(c.Query("detail"))

	if acted && actionErr == nil {
		target := "/"
		if detailID != "" {
			target += "?" + url.Values{"detail": {detailID.String()}}.Encode()
		}
		c.Redirect(http.StatusSeeOther, target)
		return
	}

	view, err := h.service.View(ctx, sessionID)
	if err != nil && actionErr == nil {
		actionErr = err
	}

	data := pageData{
		View:      view,
		Summary:   view.Summary(),
		Columns:   columnHeaders(view),
		PageSizes: PageSizes,
		PrevPage:  view.Pagination.Page - 1,
		NextPage:  view.Pagination.Page + 1,
	}
	if detailID != "" {
		if product, err := h.service.Detail(ctx, sessionID, detailID); err == nil {
			data.Detail = &product
		} else if actionErr == nil {
			actionErr = err
		}
	}

	status := http.StatusOK
	if actionErr != nil {
		status, _, _ = statusFor(actionErr)
		data.Error = actionErr.Error()
	}
	c.HTML(status, DashboardTemplate, data)
}

func columnHeaders(view viewstate.PageView) []columnHeader {
	labels := []struct{ key, label string }{
		{"id", "ID"},
		{"title", "Title"},
		{"price", "Price"},
		{"category", "Category"},
	}
	out := make([]columnHeader, len(labels))
	for i, l := range labels {
		out[i] = columnHeader{Key: l.key, Label: l.label, Indicator: view.SortIndicator(l.key)}
	}
	return out
}

// truncate cuts s to n characters and appends "..." when it was longer
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func thumbnail(images []string) string {
	if len(images) == 0 || images[0] == "" {
		return placeholderThumb
	}
	return images[0]
}

func largeImage(images []string) string {
	if len(images) == 0 || images[0] == "" {
		return placeholderLarge
	}
	return images[0]
}

// extraImages returns up to three images after the first
func extraImages(images []string) []string {
	if len(images) < 2 {
		return nil
	}
	end := min(len(images), 1+maxExtraImages)
	return images[1:end]
}

func orNA(s string) string {
	if s == "" {
		return models.NotAvailable
	}
	return s
}

func describe(s string) string {
	if s == "" {
		return "No description"
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return models.NotAvailable
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func arrow(indicator string) string {
	switch indicator {
	case string(viewstate.Ascending):
		return "▲"
	case string(viewstate.Descending):
		return "▼"
	default:
		return ""
	}
}
