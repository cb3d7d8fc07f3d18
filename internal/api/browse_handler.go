package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/seagrid/asyncmedia/internal/api/shared"
	"github.com/seagrid/asyncmedia/internal/media"
	"github.com/seagrid/asyncmedia/internal/store"
)

//go:embed templates/browse.html.tmpl
var templateFS embed.FS

// StaticFS holds the browser-side assets, including the polling script
// consumed by the browse page. Mounted under /static/ by the router.
//
//go:embed static
var StaticFS embed.FS

// DefaultThumbnailSpec is the grid cell size of the browse page.
var DefaultThumbnailSpec = media.TransformSpec{
	Kind:   media.KindThumbnail,
	Width:  150,
	Height: 150,
}

// defaultPageSize is how many grid cells one page render registers.
const defaultPageSize = 40

// BrowseHandler renders the image grid. Rendering is synchronous and
// fast: it only derives media keys and emits placeholders; all
// generation happens later, kicked off by the page's polling script.
type BrowseHandler struct {
	images   store.ImageStore
	batches  *media.Batches
	logger   *slog.Logger
	tmpl     *template.Template
	pageSize int
}

// NewBrowseHandler creates a new BrowseHandler.
func NewBrowseHandler(images store.ImageStore, batches *media.Batches, logger *slog.Logger) *BrowseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl := template.Must(template.ParseFS(templateFS, "templates/browse.html.tmpl"))
	return &BrowseHandler{
		images:   images,
		batches:  batches,
		logger:   logger.With(slog.String("component", "browse_handler")),
		tmpl:     tmpl,
		pageSize: defaultPageSize,
	}
}

// browseCell is one grid cell of the rendered page.
type browseCell struct {
	ImageID        string
	Name           string
	PlaceholderSrc string
	MediaKey       string
	BatchID        string
}

// browsePage is the template data for the browse page.
type browsePage struct {
	Cells       []browseCell
	Page        int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	PrevPage    int
	NextPage    int
	ContextJSON template.JS
}

// asyncMediaContext is embedded as JSON for the polling script.
type asyncMediaContext struct {
	BatchID   string   `json:"batchId"`
	Keys      []string `json:"keys"`
	StartURL  string   `json:"startUrl"`
	StatusURL string   `json:"statusUrl"`
}

// Browse handles GET /browse requests.
func (h *BrowseHandler) Browse(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid page number")
			return
		}
		page = parsed
	}

	ctx := r.Context()

	count, err := h.images.Count(ctx)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	images, err := h.images.List(ctx, h.pageSize, (page-1)*h.pageSize)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	// One batch per page render: every cell below shares its TTL and
	// reference-counting scope.
	batch := h.batches.Open()
	defer batch.Close()

	cells := make([]browseCell, 0, len(images))
	keys := make([]string, 0, len(images))
	for _, img := range images {
		desc, err := batch.Register(img.Filepath, DefaultThumbnailSpec)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r,
				MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
			return
		}
		cells = append(cells, browseCell{
			ImageID:        img.ID.String(),
			Name:           img.Name,
			PlaceholderSrc: desc.PlaceholderSrc,
			MediaKey:       string(desc.MediaKey),
			BatchID:        desc.BatchID,
		})
		keys = append(keys, string(desc.MediaKey))
	}

	contextJSON, err := json.Marshal(asyncMediaContext{
		BatchID:   batch.ID(),
		Keys:      keys,
		StartURL:  "/async_media/start",
		StatusURL: "/async_media/status",
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			http.StatusInternalServerError, "Failed to render page", err)
		return
	}

	totalPages := int((count + int64(h.pageSize) - 1) / int64(h.pageSize))
	if totalPages < 1 {
		totalPages = 1
	}

	data := browsePage{
		Cells:       cells,
		Page:        page,
		TotalPages:  totalPages,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		PrevPage:    page - 1,
		NextPage:    page + 1,
		ContextJSON: template.JS(contextJSON),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render browse page", slog.String("error", err.Error()))
	}
}
