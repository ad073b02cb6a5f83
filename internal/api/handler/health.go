package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Version is reported by /health.
const Version = "0.1.0"

// Pinger checks a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GallerySizer reports how many identities are matchable.
type GallerySizer interface {
	GallerySize() int
}

type HealthHandler struct {
	db      Pinger
	gallery GallerySizer
}

// NewHealthHandler creates a HealthHandler. Either dependency may be nil.
func NewHealthHandler(db Pinger, gallery GallerySizer) *HealthHandler {
	return &HealthHandler{db: db, gallery: gallery}
}

type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version,omitempty"`
	Database       string `json:"database,omitempty"`
	GalleryEntries *int   `json:"gallery_entries,omitempty"`
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ready"}

	if h.gallery != nil {
		n := h.gallery.GallerySize()
		resp.GalleryEntries = &n
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "unavailable"
			resp.Database = "down"
			return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
		}
		resp.Database = "up"
	}

	return c.JSON(resp)
}
