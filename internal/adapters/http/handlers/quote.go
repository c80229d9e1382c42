package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	exportFilename = "quotes.json"
	importFormFile = "file"

	// maxImportSize caps an import upload even when the server-wide body
	// limit is looser or absent.
	maxImportSize = 1 << 20
)

var errImportTooLarge = fmt.Errorf("import exceeds %d bytes", maxImportSize)

// PageRenderer turns a view into a standalone HTML page.
type PageRenderer interface {
	Page(view ports.View) ([]byte, error)
}

// QuoteHandler exposes the quote service over HTTP.
type QuoteHandler struct {
	service *app.QuoteService
	pages   PageRenderer
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(service *app.QuoteService, pages PageRenderer) *QuoteHandler {
	return &QuoteHandler{
		service: service,
		pages:   pages,
	}
}

// ListQuotes handles GET /api/v1/quotes.
// Without ?category the persisted selection is used. Results are paged.
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	var req dto.ListQuotesRequest
	if err := dto.BindQueryAndValidate(c, &req); err != nil {
		dto.RespondBindingError(c, err)
		return
	}

	offset, err := req.Offset()
	if err != nil {
		dto.RespondBindingError(c, err)
		return
	}

	ctx := c.Request.Context()

	category := req.Category
	if category == "" {
		category = h.service.Selected(ctx)
	}

	quotes := h.service.Quotes(ctx, category)

	c.JSON(http.StatusOK, dto.QuoteListResponse{
		Page:     dto.Paginate(dto.NewQuoteResponses(quotes), offset, req.GetLimit()),
		Category: category,
	})
}

// RandomQuoteResponse carries the drawn quote, or the no-quotes message.
type RandomQuoteResponse struct {
	Quote   *dto.QuoteResponse `json:"quote"`
	Message string             `json:"message,omitempty"`
}

// RandomQuote handles GET /api/v1/quotes/random. It draws one quote from the
// selected category and records it as last viewed.
func (h *QuoteHandler) RandomQuote(c *gin.Context) {
	quote, err := h.service.ShowRandom(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	if quote == nil {
		c.JSON(http.StatusOK, RandomQuoteResponse{Message: app.NoQuotesMessage})
		return
	}

	resp := dto.NewQuoteResponse(*quote)
	c.JSON(http.StatusOK, RandomQuoteResponse{Quote: &resp})
}

// LastViewed handles GET /api/v1/quotes/last-viewed.
func (h *QuoteHandler) LastViewed(c *gin.Context) {
	quote, err := h.service.LastViewed(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuoteResponse(*quote))
}

// AddQuote handles POST /api/v1/quotes.
func (h *QuoteHandler) AddQuote(c *gin.Context) {
	var req dto.AddQuoteRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondBindingError(c, err)
		return
	}

	quote, err := h.service.Add(c.Request.Context(), req.Text, req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuoteResponse(quote))
}

// ImportQuotes handles POST /api/v1/quotes/import. The JSON array is taken
// from a multipart "file" field or, failing that, the raw body.
func (h *QuoteHandler) ImportQuotes(c *gin.Context) {
	raw, err := readImport(c)
	if errors.Is(err, errImportTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrorCodeBadRequest, err.Error()).
			WithTraceID(dto.GetTraceID(c)))
		return
	}

	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrorCodeBadRequest, err.Error()).
			WithTraceID(dto.GetTraceID(c)))
		return
	}

	count, err := h.service.Import(c.Request.Context(), raw)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImportResponse{Imported: count, Total: len(h.service.All())})
}

func readImport(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportSize)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile(importFormFile)
		if err != nil {
			if isTooLarge(err) {
				return nil, errImportTooLarge
			}

			return nil, errors.New("multipart import needs a \"file\" field")
		}

		if header.Size > maxImportSize {
			return nil, errImportTooLarge
		}

		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = file.Close() }()

		return io.ReadAll(file)
	}

	raw, err := io.ReadAll(c.Request.Body)
	if isTooLarge(err) {
		return nil, errImportTooLarge
	}

	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, errors.New("request body is empty")
	}

	return raw, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// ExportQuotes handles GET /api/v1/quotes/export as a quotes.json download.
func (h *QuoteHandler) ExportQuotes(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	c.Data(http.StatusOK, "application/json", h.service.Export(c.Request.Context()))
}

// ListCategories handles GET /api/v1/categories.
func (h *QuoteHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, dto.CategoriesResponse{
		Categories: h.service.Categories(),
		Selected:   h.service.Selected(c.Request.Context()),
	})
}

// SelectCategory handles PUT /api/v1/categories/selected. An unknown
// category is stored as "all"; the response says what was stored.
func (h *QuoteHandler) SelectCategory(c *gin.Context) {
	var req dto.SelectCategoryRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.RespondBindingError(c, err)
		return
	}

	stored, err := h.service.Select(c.Request.Context(), req.Category)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SelectCategoryResponse{Selected: stored})
}

// SyncNow handles POST /api/v1/sync.
func (h *QuoteHandler) SyncNow(c *gin.Context) {
	result, err := h.service.SyncNow(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewSyncResponse(result, h.service.SyncState()))
}

// SyncStatus handles GET /api/v1/sync.
func (h *QuoteHandler) SyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": h.service.SyncState().String()})
}

// View handles GET /api/v1/view: the current list as an HTML page, or the
// structured nodes with ?format=json.
func (h *QuoteHandler) View(c *gin.Context) {
	view := h.service.View(c.Request.Context())

	if c.Query("format") == "json" || h.pages == nil {
		c.JSON(http.StatusOK, view)
		return
	}

	page, err := h.pages.Page(view)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// RegisterQuoteRoutes registers quote routes on the given router group.
func (h *QuoteHandler) RegisterQuoteRoutes(rg *gin.RouterGroup) {
	quotes := rg.Group("/quotes")
	quotes.GET("", h.ListQuotes)
	quotes.POST("", h.AddQuote)
	quotes.GET("/random", h.RandomQuote)
	quotes.GET("/last-viewed", h.LastViewed)
	quotes.POST("/import", h.ImportQuotes)
	quotes.GET("/export", h.ExportQuotes)

	rg.GET("/categories", h.ListCategories)
	rg.PUT("/categories/selected", h.SelectCategory)

	rg.GET("/sync", h.SyncStatus)
	rg.POST("/sync", h.SyncNow)

	rg.GET("/view", h.View)
}
