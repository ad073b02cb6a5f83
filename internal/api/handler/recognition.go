package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// RecognitionService processes camera frames
type RecognitionService interface {
	Recognize(ctx context.Context, image []byte, station string) (*domain.FrameResult, error)
	RecognizeEmbeddings(ctx context.Context, embeddings [][]float32, station string) (*domain.FrameResult, error)
}

// RecognitionHandler handles frame submissions
type RecognitionHandler struct {
	service        RecognitionService
	defaultStation string
	logger         *slog.Logger
}

func NewRecognitionHandler(service RecognitionService, defaultStation string, logger *slog.Logger) *RecognitionHandler {
	return &RecognitionHandler{
		service:        service,
		defaultStation: defaultStation,
		logger:         logger,
	}
}

type EmbeddingsRequest struct {
	Station    string      `json:"station"`
	Embeddings [][]float32 `json:"embeddings"`
}

func (h *RecognitionHandler) station(s string) string {
	if s == "" {
		return h.defaultStation
	}
	return s
}

// Recognize POST /v1/recognitions
func (h *RecognitionHandler) Recognize(c *fiber.Ctx) error {
	image, err := extractImage(c)
	if err != nil {
		return err
	}

	result, err := h.service.Recognize(c.Context(), image, h.station(c.FormValue("station")))
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// RecognizeEmbeddings POST /v1/recognitions/embeddings
func (h *RecognitionHandler) RecognizeEmbeddings(c *fiber.Ctx) error {
	var req EmbeddingsRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if req.Embeddings == nil {
		return domain.ErrValidationFailed.WithError(errors.New("embeddings is required"))
	}

	result, err := h.service.RecognizeEmbeddings(c.Context(), req.Embeddings, h.station(req.Station))
	if err != nil {
		return err
	}

	return c.JSON(result)
}
