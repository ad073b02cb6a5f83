package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/rollcall/internal/domain"
)

// EnrollmentService manages the gallery of known identities
type EnrollmentService interface {
	Enroll(ctx context.Context, identityID, displayName string, image []byte) (*domain.Enrollment, error)
	Unenroll(ctx context.Context, identityID string) error
	ListEnrollments(ctx context.Context) ([]domain.Enrollment, error)
	ReloadGallery(ctx context.Context) (int, error)
}

// EnrollmentHandler handles enrollment requests
type EnrollmentHandler struct {
	service EnrollmentService
	logger  *slog.Logger
}

func NewEnrollmentHandler(service EnrollmentService, logger *slog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		service: service,
		logger:  logger,
	}
}

type EnrollmentResponse struct {
	IdentityID  string `json:"identity_id"`
	DisplayName string `json:"display_name"`
	ImageKey    string `json:"image_key,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type EnrollmentListResponse struct {
	Enrollments []EnrollmentResponse `json:"enrollments"`
	Total       int                  `json:"total"`
}

type ReloadResponse struct {
	Entries int `json:"entries"`
}

func toEnrollmentResponse(e *domain.Enrollment) EnrollmentResponse {
	return EnrollmentResponse{
		IdentityID:  e.IdentityID,
		DisplayName: e.DisplayName,
		ImageKey:    e.ImageKey,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// Create POST /v1/enrollments
func (h *EnrollmentHandler) Create(c *fiber.Ctx) error {
	image, err := extractImage(c)
	if err != nil {
		return err
	}

	enrollment, err := h.service.Enroll(c.Context(), c.FormValue("identity_id"), c.FormValue("display_name"), image)
	if err != nil {
		return err
	}

	h.logger.Info("identity enrolled", "identity_id", enrollment.IdentityID)

	return c.Status(fiber.StatusCreated).JSON(toEnrollmentResponse(enrollment))
}

// List GET /v1/enrollments
func (h *EnrollmentHandler) List(c *fiber.Ctx) error {
	enrollments, err := h.service.ListEnrollments(c.Context())
	if err != nil {
		return err
	}

	resp := EnrollmentListResponse{
		Enrollments: make([]EnrollmentResponse, 0, len(enrollments)),
		Total:       len(enrollments),
	}
	for i := range enrollments {
		resp.Enrollments = append(resp.Enrollments, toEnrollmentResponse(&enrollments[i]))
	}

	return c.JSON(resp)
}

// Delete DELETE /v1/enrollments/:identity_id
func (h *EnrollmentHandler) Delete(c *fiber.Ctx) error {
	identityID := c.Params("identity_id")
	if identityID == "" {
		return domain.ErrBadRequest
	}

	if err := h.service.Unenroll(c.Context(), identityID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Reload POST /v1/gallery/reload
func (h *EnrollmentHandler) Reload(c *fiber.Ctx) error {
	n, err := h.service.ReloadGallery(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(ReloadResponse{Entries: n})
}
