// Package ingest serves the recipe ingestion endpoints: scrape a page, read a photo, structure text.
// Every result is cleaned before it is returned.
package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"

	"recipe-ingest/internal/core/recipe"
	"recipe-ingest/internal/core/scraper"
	"recipe-ingest/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Scraper extracts recipes from web pages.
type Scraper interface {
	Scrape(ctx context.Context, req scraper.Request) (*recipe.ScrapedRecipe, error)
}

// Extractor extracts recipes from photos and text.
type Extractor interface {
	Enabled() bool
	FromImage(ctx context.Context, data []byte, hint string) (*recipe.ScrapedRecipe, error)
	FromImageDataURI(ctx context.Context, uri, hint string) (*recipe.ScrapedRecipe, error)
	FromText(ctx context.Context, text, hint string) (*recipe.ScrapedRecipe, error)
}

// ScrapeRequest is the body of POST /scrape. HTML, when given, is used instead of fetching URL.
type ScrapeRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
	Host string `json:"host"`
}

// ImageRequest is the JSON form of POST /from_image. Img is a "data:image/...;base64," string.
type ImageRequest struct {
	Img  string `json:"img" binding:"required"`
	Hint string `json:"hint"`
}

// TextRequest is the body of POST /from_text.
type TextRequest struct {
	Text string `json:"text" binding:"required"`
	Hint string `json:"hint"`
}

// Handler holds the ingestion endpoints.
type Handler struct {
	scraper   Scraper
	extractor Extractor
	clean     recipe.CleanOptions
	debug     bool
}

// NewHandler creates the handler. extractor may be nil when AI extraction is not configured.
func NewHandler(s Scraper, extractor Extractor, clean recipe.CleanOptions, debug bool) *Handler {
	return &Handler{
		scraper:   s,
		extractor: extractor,
		clean:     clean,
		debug:     debug,
	}
}

// ScrapeURL handles GET /scrape?url=...&host=...
func (h *Handler) ScrapeURL(c *gin.Context) {
	req := scraper.Request{URL: c.Query("url"), Host: c.Query("host")}
	if req.URL == "" {
		h.fail(c, common.Wrapf(common.ErrInvalidRequest, "query parameter url is required"))
		return
	}
	h.scrape(c, req)
}

// ScrapePage handles POST /scrape with a ScrapeRequest body.
func (h *Handler) ScrapePage(c *gin.Context) {
	var body ScrapeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, bindError(err))
		return
	}
	h.scrape(c, scraper.Request{URL: body.URL, HTML: body.HTML, Host: body.Host})
}

func (h *Handler) scrape(c *gin.Context, req scraper.Request) {
	out, err := h.scraper.Scrape(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, out)
}

// FromImage handles POST /from_image with a multipart "img" file and optional "hint" field, or
// with an ImageRequest JSON body.
func (h *Handler) FromImage(c *gin.Context) {
	if h.extractor == nil || !h.extractor.Enabled() {
		h.fail(c, common.ErrNotEnabled)
		return
	}

	if c.ContentType() == gin.MIMEJSON {
		h.fromDataURI(c)
		return
	}

	file, err := c.FormFile("img")
	if err != nil {
		h.fail(c, bindError(err))
		return
	}
	f, err := file.Open()
	if err != nil {
		h.fail(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}

	common.LogInfo("Image upload received",
		zap.String("request_id", requestid.Get(c)),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size),
	)

	out, err := h.extractor.FromImage(c.Request.Context(), data, c.PostForm("hint"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, out)
}

func (h *Handler) fromDataURI(c *gin.Context) {
	var body ImageRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, bindError(err))
		return
	}

	common.LogInfo("Image data URI received",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("length", len(body.Img)),
	)

	out, err := h.extractor.FromImageDataURI(c.Request.Context(), body.Img, body.Hint)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, out)
}

// FromText handles POST /from_text with a TextRequest body.
func (h *Handler) FromText(c *gin.Context) {
	if h.extractor == nil || !h.extractor.Enabled() {
		h.fail(c, common.ErrNotEnabled)
		return
	}

	var body TextRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.fail(c, bindError(err))
		return
	}

	out, err := h.extractor.FromText(c.Request.Context(), body.Text, body.Hint)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, out)
}

func (h *Handler) respond(c *gin.Context, out *recipe.ScrapedRecipe) {
	if err := out.Clean(h.clean); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) fail(c *gin.Context, err error) {
	if errors.Is(c.Request.Context().Err(), context.DeadlineExceeded) {
		err = common.Wrap(common.ErrRequestTimeout, err)
	}
	status, body := common.ErrorResponseFor(err, h.debug)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewError(common.ErrCodeTooLarge, "request body too large", http.StatusRequestEntityTooLarge, err)
	}
	return common.Wrap(common.ErrInvalidRequest, err)
}
