package ar

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler manages receivable endpoints.
type Handler struct {
	logger *slog.Logger
	poster *Poster
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, poster *Poster) *Handler {
	return &Handler{logger: logger, poster: poster}
}

// MountRoutes registers receivable routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.poster.List(r.Context(), ListFilter{
		DocumentNumber: r.URL.Query().Get("document_number"),
		Status:         EntryStatus(r.URL.Query().Get("status")),
		Limit:          limit,
	})
	if err != nil {
		h.logger.Error("list receivables failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
